package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"cutagent/internal/edl"
)

func newCapabilitiesCommand() *cobra.Command {
	var asTable bool

	cmd := &cobra.Command{
		Use:         "capabilities",
		Short:       "List all operations and their schemas",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			caps := edl.Describe()
			if !asTable {
				return writeJSON(cmd, caps)
			}
			fmt.Fprintln(cmd.OutOrStdout(), capabilitiesTable(caps))
			return nil
		},
	}
	cmd.Flags().BoolVar(&asTable, "table", false, "Render operations as a table instead of JSON")
	return cmd
}

func capabilitiesTable(caps edl.Capabilities) string {
	title := cases.Title(language.English)
	view := tableView{
		title:   "EDL operations (schema " + caps.Version + ")",
		headers: []string{"Operation", "Op", "Required", "Copy", "Description"},
	}
	for _, name := range caps.OperationOrder {
		op := caps.Operations[name]
		view.add(
			title.String(strings.ReplaceAll(name, "_", " ")),
			name,
			strings.Join(op.Required, ", "),
			yesNo(op.SupportsCopy),
			op.Description,
		)
	}
	return view.render()
}
