package main

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/nevscope/nevscope/internal/roles"
)

var rolesFileFlag string

var rolesCmd = &cobra.Command{
	Use:   "roles",
	Short: "List the registered analysis roles",
	Long: `List every registered analysis role with its prerequisites and the
datasets it reads. Roles from --roles-file are included.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		table := roles.Builtin()
		if rolesFileFlag != "" {
			if err := roles.LoadFile(table, rolesFileFlag); err != nil {
				return fmt.Errorf("load roles file: %w", err)
			}
		}

		bold := color.New(color.Bold)
		for _, spec := range table.Specs() {
			bold.Println(spec.Name)
			fmt.Printf("  %s\n", spec.Description)
			if len(spec.Requires) > 0 {
				var reqs []string
				for _, req := range spec.Requires {
					if req.Optional {
						reqs = append(reqs, req.Role+" (optional)")
					} else {
						reqs = append(reqs, req.Role)
					}
				}
				fmt.Printf("  Requires: %s\n", strings.Join(reqs, ", "))
			}
			if len(spec.Datasets) > 0 {
				fmt.Printf("  Datasets: %s\n", strings.Join(spec.Datasets, ", "))
			}
		}
		return nil
	},
}

func init() {
	rolesCmd.Flags().StringVar(&rolesFileFlag, "roles-file", "", "YAML file with additional role definitions")
}
