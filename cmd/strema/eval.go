package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/strema/strema/condition"
	"github.com/strema/strema/internal/value"
)

func newEvalCmd() *cobra.Command {
	var dataPath string
	var debug bool
	cmd := &cobra.Command{
		Use:   "eval <expression>",
		Short: "evaluate a conditional expression against a JSON record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ast, diags := condition.Parse(args[0], condition.DefaultConfig())
			if diags.HasErrors() {
				for _, d := range diags {
					ev := log.Error().Str("type", string(d.Type)).Int("offset", d.Position)
					if d.Suggestion != "" {
						ev = ev.Str("suggestion", d.Suggestion)
					}
					ev.Msg(d.Message)
				}
				return fmt.Errorf("expression did not parse")
			}

			record := map[string]any{}
			if dataPath != "" {
				raw, err := os.ReadFile(dataPath)
				if err != nil {
					return err
				}
				record, err = value.DecodeJSON(raw)
				if err != nil {
					return fmt.Errorf("decoding %s: %w", dataPath, err)
				}
			}

			res := condition.Evaluate(ast, condition.DataContext{Record: record}, condition.EvalOptions{Debug: debug})
			for _, d := range res.Issues {
				log.Warn().Str("type", string(d.Type)).Msg(d.Message)
			}
			if res.Debug != nil {
				// the trace was asked for explicitly, so it prints at the default level
				for i, step := range res.Debug.Steps {
					log.Info().Int("step", i).Bool("outcome", step.Outcome).Str("note", step.Note).Msg(step.Expr)
				}
				log.Info().Str("branch", res.Debug.Branch).Msg("evaluation path")
			}
			if d, ok := res.Descriptor(); ok {
				fmt.Printf("branch: type %s\n", d)
				return nil
			}
			if v, ok := res.Default(); ok {
				fmt.Printf("branch: default %v\n", v)
				return nil
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&dataPath, "data", "d", "", "JSON file with the record to evaluate against")
	cmd.Flags().BoolVar(&debug, "debug", false, "print the evaluation trace")
	return cmd
}
