package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func newAnalyzeCmd() *cobra.Command {
	var split bool
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "analyze [text...]",
		Short: "Tokenize a sentence and show each token's code-point span",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := requireConfig()
			if err != nil {
				return err
			}

			input, err := readInputText(args, cmd.InOrStdin())
			if err != nil {
				return err
			}

			an, err := newAnalyzer(cfg)
			if err != nil {
				return err
			}

			sentences, err := analyzeInput(an, input, split)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(sentences)
			}

			for i, s := range sentences {
				if i > 0 {
					_, _ = fmt.Fprintln(out)
				}
				_, _ = fmt.Fprintln(out, s.Text)
				if err := writeTable(out, tokenHeader, tokenRows(s)); err != nil {
					return err
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&split, "split", false, "Split the input into sentences and analyze each one")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the analysis as JSON")

	return cmd
}
