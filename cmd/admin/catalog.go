package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/zatekoja/geyser-noncompliance/internal/domain/entities"
)

func newCatalogCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Print the fixed inspection checklist",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(map[string]interface{}{
					"issues":     entities.Issues(),
					"categories": entities.IssueCategories(),
				})
			}

			for _, issue := range entities.Issues() {
				categories := entities.CategoriesForIssue(issue.Index)
				fmt.Fprintf(out, "%2d  %s  [%s]\n", issue.Index, issue.Description, strings.Join(categories, ", "))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print the catalog as JSON")
	return cmd
}
