package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"reciboqr/internal/app"
	"reciboqr/internal/config"
)

var Version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// cli carries the App built in PersistentPreRunE to the subcommands.
type cli struct {
	configFile string
	app        *app.App
}

func newRootCmd() *cobra.Command {
	c := &cli{}
	root := &cobra.Command{
		Use:           "reciboqr",
		Short:         "Receipt numbering and signed QR codes",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(c.configFile)
			if err != nil {
				return err
			}
			a, err := app.New(cfg)
			if err != nil {
				return err
			}
			c.app = a
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if c.app == nil {
				return nil
			}
			return c.app.Close()
		},
	}
	root.PersistentFlags().StringVarP(&c.configFile, "config", "c", "", "config file (default ./reciboqr.yaml)")

	root.AddCommand(
		c.peekCmd(),
		c.statusCmd(),
		c.issueCmd(),
		c.setPosCmd(),
		c.signCmd(),
		c.verifyCmd(),
	)
	return root
}
