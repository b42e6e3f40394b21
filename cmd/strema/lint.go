package main

import (
	"fmt"

	"github.com/spf13/cobra"

	strema "github.com/strema/strema"
	"github.com/strema/strema/condition"
)

func newLintCmd() *cobra.Command {
	var strict bool
	var maxDepth int
	cmd := &cobra.Command{
		Use:   "lint <schema.yaml>",
		Short: "compile a YAML schema file and report every diagnostic",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := condition.DefaultConfig()
			cfg.Strict = strict
			if maxDepth > 0 {
				cfg.MaxNestingDepth = maxDepth
			}
			s, err := strema.CompileYAMLFile(args[0], strema.WithConditionConfig(cfg))
			if err != nil {
				iss, ok := strema.AsIssues(err)
				if !ok {
					return err
				}
				for _, it := range iss {
					ev := log.Error().
						Str("field", it.Path).
						Str("code", it.Code).
						Int64("offset", it.Offset)
					if it.Hint != "" {
						ev = ev.Str("hint", it.Hint)
					}
					ev.Msg(it.Message)
				}
				return fmt.Errorf("%d issue(s) in %s", len(iss), args[0])
			}

			for _, name := range s.Fields() {
				ast := s.Conditional(name)
				if ast == nil {
					continue
				}
				log.Info().
					Str("field", name).
					Int("complexity", condition.ComplexityScore(ast)).
					Bool("nested", condition.HasNestedConditionals(ast)).
					Strs("references", condition.FieldReferences(ast)).
					Msg("conditional field")
			}
			log.Info().Int("fields", len(s.Fields())).Msg("schema OK")
			return nil
		},
	}
	cmd.Flags().BoolVar(&strict, "strict", false, "treat unknown method names as errors")
	cmd.Flags().IntVar(&maxDepth, "max-depth", 0, "override the conditional nesting limit")
	return cmd
}
