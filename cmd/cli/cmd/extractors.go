package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dumpsleuth/internal/extractor"
)

// extractorsCmd lists the built-in extractors.
var extractorsCmd = &cobra.Command{
	Use:   "extractors",
	Short: "List available extractors",
	Long:  `List the built-in extractors, the finding categories each one emits, and whether the current configuration enables it.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		conf := GetConfig()
		enabled := make(map[string]bool, len(conf.Plugins.Enabled))
		for _, name := range conf.Plugins.Enabled {
			enabled[name] = true
		}

		registry := extractor.Defaults()

		fmt.Printf("%-12s %-8s %s\n", "NAME", "ENABLED", "CATEGORIES")
		for _, name := range registry.Names() {
			ext, _ := registry.Get(name)
			desc := ext.Descriptor()
			cats := make([]string, len(desc.Categories))
			for i, c := range desc.Categories {
				cats[i] = string(c)
			}
			fmt.Printf("%-12s %-8v %s\n", desc.Name, enabled[desc.Name], strings.Join(cats, ", "))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(extractorsCmd)
}
