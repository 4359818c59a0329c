package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pgstar/pgstar/pkg/codec"
)

func newInferCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "infer <expression>",
		Short: "Print the database type inferred from a Starlark expression",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app := appFrom(cmd.Context())

			v, err := evalExpr(args[0])
			if err != nil {
				return err
			}

			oid := codec.InferredTypeOID(v)
			out := cmd.OutOrStdout()
			if oid == 0 {
				fmt.Fprintf(out, "%s: no inferred type\n", v.Type())
				return nil
			}
			name, _ := app.Names.NameByOID(oid)
			fmt.Fprintf(out, "%s -> %s (oid %d)\n", v.Type(), name, oid)
			return nil
		},
	}
}
