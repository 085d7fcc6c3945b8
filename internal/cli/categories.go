package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/librestore/pkg/types"
)

func newCategoriesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "categories",
		Short: "Show the library's category tree",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			lib, _, err := a.attachLibrary()
			if err != nil {
				return err
			}
			defer lib.Detach()

			categories, err := lib.Categories(cmd.Context())
			if err != nil {
				return withCode(exitSysError, fmt.Errorf("list categories: %w", err))
			}

			if a.flags.jsonMode {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(categories)
			}
			printCategoryTree(cmd.OutOrStdout(), categories)
			return nil
		},
	}
}

// printCategoryTree writes categories indented under their parents, each
// level in store order. A category whose parent is missing prints as a root.
func printCategoryTree(w io.Writer, categories []types.Category) {
	known := make(map[int64]bool, len(categories))
	for _, c := range categories {
		known[c.ID] = true
	}
	children := make(map[int64][]types.Category)
	var roots []types.Category
	for _, c := range categories {
		if c.ParentID == nil || !known[*c.ParentID] {
			roots = append(roots, c)
			continue
		}
		children[*c.ParentID] = append(children[*c.ParentID], c)
	}

	printed := make(map[int64]bool, len(categories))
	var walk func(c types.Category, depth int)
	walk = func(c types.Category, depth int) {
		if printed[c.ID] {
			return
		}
		printed[c.ID] = true
		fmt.Fprintf(w, "%s%s\n", strings.Repeat("  ", depth), c.Name)
		for _, child := range children[c.ID] {
			walk(child, depth+1)
		}
	}
	for _, c := range roots {
		walk(c, 0)
	}
}
