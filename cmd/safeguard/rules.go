package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/xaenox/safeguard/internal/filter"
)

var rulesFormat string

type ruleEntry struct {
	Category string `json:"category" yaml:"category"`
	Label    string `json:"label" yaml:"label"`
	Token    string `json:"token" yaml:"token"`
	Scope    string `json:"scope" yaml:"scope"`
	Pattern  string `json:"pattern" yaml:"pattern"`
}

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "List the content filter rules in evaluation order",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		var entries []ruleEntry
		for _, r := range filter.Rules() {
			entries = append(entries, ruleEntry{
				Category: string(r.Category),
				Label:    r.Category.Label(),
				Token:    r.Category.Token(),
				Scope:    r.Scope.String(),
				Pattern:  r.Pattern.String(),
			})
		}

		switch rulesFormat {
		case "json":
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(entries)
		case "yaml":
			enc := yaml.NewEncoder(cmd.OutOrStdout())
			defer enc.Close()
			return enc.Encode(entries)
		default:
			return fmt.Errorf("unknown format %q (want json or yaml)", rulesFormat)
		}
	},
}

func init() {
	rulesCmd.Flags().StringVarP(&rulesFormat, "format", "f", "yaml", "Output format: json or yaml")
}
