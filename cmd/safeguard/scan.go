package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/xaenox/safeguard/internal/detector"
	"github.com/xaenox/safeguard/internal/filter"
)

var (
	scanUnder13 bool
	scanStrict  bool
	scanFormat  string
)

type scanReport struct {
	Filter   filter.Verdict  `json:"filter" yaml:"filter"`
	Detector detector.Signal `json:"detector" yaml:"detector"`
}

var scanCmd = &cobra.Command{
	Use:   "scan <text>",
	Short: "Run the content filter and concern detector on one message",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		text := strings.Join(args, " ")
		report := scanReport{
			Filter:   filter.Filter(text, scanUnder13, scanStrict),
			Detector: detector.Detect(text),
		}

		switch scanFormat {
		case "json":
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(report)
		case "yaml":
			enc := yaml.NewEncoder(cmd.OutOrStdout())
			defer enc.Close()
			return enc.Encode(report)
		default:
			return fmt.Errorf("unknown format %q (want json or yaml)", scanFormat)
		}
	},
}

func init() {
	scanCmd.Flags().BoolVar(&scanUnder13, "under13", false, "Apply the under-13 rule set")
	scanCmd.Flags().BoolVar(&scanStrict, "strict", false, "Apply strict-mode personal information rules")
	scanCmd.Flags().StringVarP(&scanFormat, "format", "f", "json", "Output format: json or yaml")
}
