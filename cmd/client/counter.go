package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"reciboqr/internal/models"
)

func (c *cli) peekCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "peek",
		Short: "Show the next receipt number without reserving it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := c.app.Store(cmd.Context())
			if err != nil {
				return err
			}
			n, err := store.PeekNext()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), n)
			return nil
		},
	}
}

func (c *cli) statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show counter state and paths",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := c.app.Config
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Counter file:  %s\n", cfg.Paths.CounterFile)
			fmt.Fprintf(out, "Output dir:    %s\n", cfg.Paths.OutputDir)
			fmt.Fprintf(out, "Lock backend:  %s (fail open: %t)\n", cfg.Counter.LockBackend, cfg.Counter.FailOpen)

			store, err := c.app.Store(cmd.Context())
			if err != nil {
				return err
			}
			st, err := store.State()
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Point of sale: %s\n", st.PointOfSale)
			fmt.Fprintf(out, "Last issued:   %s\n", st.Current())
			if next, err := st.Next(); err == nil {
				fmt.Fprintf(out, "Next:          %s\n", next)
			} else {
				fmt.Fprintf(out, "Next:          none (%v)\n", err)
			}
			return nil
		},
	}
}

func (c *cli) setPosCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set-pos <point-of-sale>",
		Short: "Change the point of sale used for new receipts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := c.app.Store(cmd.Context())
			if err != nil {
				return err
			}
			if err := store.SetPointOfSale(args[0]); err != nil {
				return err
			}
			n, err := store.PeekNext()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "next receipt: %s\n", n)
			return nil
		},
	}
}

func (c *cli) issueCmd() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "issue",
		Short: "Number, sign and write a receipt read as JSON",
		Long: `Reads a receipt draft (same JSON keys as the QR payload, without
numero_recibo) from --file or stdin, assigns the next number, signs it and
writes <name>.json and <name>.qr.png to the output directory.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var in io.Reader = cmd.InOrStdin()
			if file != "" && file != "-" {
				f, err := os.Open(file)
				if err != nil {
					return errors.Wrap(err, "open draft")
				}
				defer f.Close()
				in = f
			}
			var draft models.Receipt
			dec := json.NewDecoder(in)
			dec.DisallowUnknownFields()
			if err := dec.Decode(&draft); err != nil {
				return errors.Wrap(err, "decode draft")
			}

			is, err := c.app.Issuer(cmd.Context())
			if err != nil {
				return err
			}
			iss, err := is.Issue(cmd.Context(), draft)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, iss.Receipt.Number)
			fmt.Fprintln(out, iss.URL)
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "-", "draft JSON file, - for stdin")
	return cmd
}
