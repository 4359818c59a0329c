package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newConvertCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "convert <type> <expression>",
		Short: "Convert a Starlark expression to a typed datum and back",
		Long: `Evaluates a Starlark expression, converts the result to a datum of the
named type, renders the datum in the engine's text form, then converts it
back to a Starlark value.

Examples:
  pgstar convert int4 "41 + 1"
  pgstar convert _float8 "[1.5, None, -2]"
  pgstar convert jsonb '{"a": [1, 2], "b": None}'
  pgstar convert timestamp "time.from_timestamp(946684800)"`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			app := appFrom(cmd.Context())

			oid, err := app.resolveTypeName(args[0])
			if err != nil {
				return err
			}
			v, err := evalExpr(args[1])
			if err != nil {
				return err
			}

			scope := app.Codec.Arena().OpenScope()
			defer scope.Close()

			desc, err := app.Codec.Resolve(oid, scope)
			if err != nil {
				return err
			}

			d, isnull, err := app.Codec.ToDatum(v, desc, scope)
			if err != nil {
				return fmt.Errorf("to datum: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "value: %s\n", v.String())
			if isnull {
				fmt.Fprintln(out, "datum: NULL")
			} else {
				text, err := app.TextIO.RenderText(oid, d)
				if err != nil {
					return fmt.Errorf("rendering datum: %w", err)
				}
				fmt.Fprintf(out, "datum: %s\n", text)
			}

			back, err := app.Codec.ToValue(d, isnull, desc, scope)
			if err != nil {
				return fmt.Errorf("back to value: %w", err)
			}
			fmt.Fprintf(out, "back:  %s\n", back.String())
			return nil
		},
	}
}
