package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"chunksplit/modulematch"
)

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "Manage chunk override rules",
	Long: `Override rules assign modules matching glob patterns to a named chunk
before the built-in rules run. Rules are checked in file order and the first
match wins. Internal and virtual modules are never overridden.

Rules file format:
  chunks:
    - name: design-tokens
      paths:
        - "node_modules/@acme/tokens/**"
        - "src/tokens/**"

Patterns without a leading "/" match at any depth of the module id.`,
}

var rulesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List override rules",
	Args:  cobra.NoArgs,
	RunE:  runRulesList,
}

var rulesAddCmd = &cobra.Command{
	Use:   "add <name> <pattern...>",
	Short: "Add or replace an override rule",
	Args:  cobra.MinimumNArgs(2),
	RunE:  runRulesAdd,
}

var rulesRemoveCmd = &cobra.Command{
	Use:   "remove <name>",
	Short: "Remove an override rule",
	Args:  cobra.ExactArgs(1),
	RunE:  runRulesRemove,
}

var rulesCheckCmd = &cobra.Command{
	Use:   "check [module-id...]",
	Short: "Validate the rules file and show which rules match the given ids",
	RunE:  runRulesCheck,
}

func init() {
	rulesCmd.AddCommand(rulesListCmd, rulesAddCmd, rulesRemoveCmd, rulesCheckCmd)
}

func runRulesList(cmd *cobra.Command, args []string) error {
	m, err := modulematch.LoadOrEmpty(cfg.Rules)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if m.Len() == 0 {
		fmt.Fprintf(out, "No override rules in %s\n", cfg.Rules)
		return nil
	}
	for _, r := range m.Rules() {
		fmt.Fprintf(out, "%s\n", r.Name)
		for _, p := range r.Paths {
			fmt.Fprintf(out, "  %s\n", p)
		}
	}
	return nil
}

func runRulesAdd(cmd *cobra.Command, args []string) error {
	m, err := modulematch.LoadOrEmpty(cfg.Rules)
	if err != nil {
		return err
	}

	name, paths := args[0], args[1:]
	replaced := m.Rule(name) != nil
	m.Add(name, paths)
	if err := m.Validate(); err != nil {
		return err
	}
	if err := m.Save(cfg.Rules); err != nil {
		return err
	}

	verb := "Added"
	if replaced {
		verb = "Updated"
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s rule %s: %s\n", verb, name, strings.Join(paths, ", "))
	log.Debug().Str("rule", name).Str("file", cfg.Rules).Msg("rule saved")
	return nil
}

func runRulesRemove(cmd *cobra.Command, args []string) error {
	m, err := modulematch.LoadOrEmpty(cfg.Rules)
	if err != nil {
		return err
	}
	if !m.Remove(args[0]) {
		return fmt.Errorf("rule not found: %s", args[0])
	}
	if err := m.Save(cfg.Rules); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Removed rule %s\n", args[0])
	return nil
}

func runRulesCheck(cmd *cobra.Command, args []string) error {
	m, err := modulematch.LoadOrEmpty(cfg.Rules)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s: %d rules OK\n", cfg.Rules, m.Len())
	for _, id := range args {
		matched := m.MatchAll(id)
		if len(matched) == 0 {
			fmt.Fprintf(out, "%s\t(no rule)\n", id)
			continue
		}
		// The first match is the one the classifier uses.
		fmt.Fprintf(out, "%s\t%s\n", id, strings.Join(matched, ", "))
	}
	return nil
}
