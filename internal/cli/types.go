package cli

import (
	"fmt"
	"sort"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func newTypesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "types",
		Short: "List the registered types",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app := appFrom(cmd.Context())

			entries := app.Names.Entries()
			sort.Slice(entries, func(i, j int) bool { return entries[i].OID < entries[j].OID })

			t := table.NewWriter()
			t.SetOutputMirror(cmd.OutOrStdout())
			t.SetStyle(table.StyleLight)
			t.AppendHeader(table.Row{"OID", "Name", "Category", "Kind"})
			for _, e := range entries {
				kind := "scalar"
				switch {
				case e.DomainBase != 0:
					kind = fmt.Sprintf("domain over %d", e.DomainBase)
				case e.ElemOID != 0:
					kind = fmt.Sprintf("array of %d", e.ElemOID)
				case len(e.Fields) > 0:
					kind = fmt.Sprintf("composite (%d fields)", len(e.Fields))
				}
				t.AppendRow(table.Row{e.OID, e.Name, string(rune(e.Layout.Category)), kind})
			}
			t.Render()
			return nil
		},
	}
}
