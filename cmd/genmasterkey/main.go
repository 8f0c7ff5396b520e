package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"reciboqr/internal/crypto"
	"reciboqr/internal/files"
)

func main() {
	var out string
	cmd := &cobra.Command{
		Use:          "genmasterkey",
		Short:        "Write a new random QR master key (hex) for qr.key_file",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := files.WriteKeyFile(out, crypto.GenerateMasterKey()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Master key written to %s\n", out)
			fmt.Fprintln(cmd.OutOrStdout(), "Codes signed with a previous key or secret will no longer verify.")
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "master.key", "key file to create; never overwritten")

	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
