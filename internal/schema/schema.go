package schema

import (
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	clierr "github.com/molted-work/molted-cli/internal/errors"
)

// RequiresAnnotation lists the credentials a command needs, comma separated
// (for example "api_key" or "api_key,private_key").
const RequiresAnnotation = "molted/requires"

type CommandSchema struct {
	Path        string          `json:"path"`
	Use         string          `json:"use"`
	Short       string          `json:"short"`
	Example     string          `json:"example,omitempty"`
	Aliases     []string        `json:"aliases,omitempty"`
	Requires    []string        `json:"requires,omitempty"`
	Flags       []FlagSchema    `json:"flags,omitempty"`
	Subcommands []CommandSchema `json:"subcommands,omitempty"`
	ExitCodes   []ExitCode      `json:"exit_codes,omitempty"`
}

type FlagSchema struct {
	Name      string `json:"name"`
	Shorthand string `json:"shorthand,omitempty"`
	Type      string `json:"type"`
	Usage     string `json:"usage"`
	Default   string `json:"default,omitempty"`
	Required  bool   `json:"required,omitempty"`
}

type ExitCode struct {
	Code int    `json:"code"`
	Type string `json:"type"`
}

var exitCodes = []ExitCode{
	{Code: int(clierr.CodeSuccess), Type: "success"},
	{Code: int(clierr.CodeInternal), Type: string(clierr.KindInternal)},
	{Code: int(clierr.CodeValidation), Type: string(clierr.KindValidation)},
	{Code: int(clierr.CodeAuth), Type: string(clierr.KindAuth)},
	{Code: int(clierr.CodeNotFound), Type: string(clierr.KindNotFound)},
	{Code: int(clierr.CodeConflict), Type: string(clierr.KindConflict)},
	{Code: int(clierr.CodeTransport), Type: string(clierr.KindTransport)},
	{Code: int(clierr.CodeServer), Type: string(clierr.KindServer)},
	{Code: int(clierr.CodeBlocked), Type: string(clierr.KindBlocked)},
}

// Build describes root, or the command at commandPath beneath it. The exit
// code table is attached only to the root description.
func Build(root *cobra.Command, commandPath string) (CommandSchema, error) {
	cmd := root
	if strings.TrimSpace(commandPath) != "" {
		parts := strings.Fields(strings.TrimSpace(commandPath))
		for _, p := range parts {
			found := false
			for _, c := range cmd.Commands() {
				if c.Name() == p || contains(c.Aliases, p) {
					cmd = c
					found = true
					break
				}
			}
			if !found {
				return CommandSchema{}, clierr.Validation("path", "command not found: "+commandPath)
			}
		}
	}
	s := serialize(cmd)
	if cmd == root {
		s.ExitCodes = exitCodes
	}
	return s, nil
}

func serialize(cmd *cobra.Command) CommandSchema {
	s := CommandSchema{
		Path:     strings.TrimSpace(cmd.CommandPath()),
		Use:      cmd.Use,
		Short:    cmd.Short,
		Example:  cmd.Example,
		Aliases:  cmd.Aliases,
		Requires: requires(cmd),
		Flags:    collectFlags(cmd),
	}

	subs := cmd.Commands()
	for _, sub := range subs {
		if sub.Hidden {
			continue
		}
		s.Subcommands = append(s.Subcommands, serialize(sub))
	}

	return s
}

func requires(cmd *cobra.Command) []string {
	raw := strings.TrimSpace(cmd.Annotations[RequiresAnnotation])
	if raw == "" {
		return nil
	}
	out := []string{}
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	sort.Strings(out)
	return out
}

func collectFlags(cmd *cobra.Command) []FlagSchema {
	items := []FlagSchema{}
	cmd.NonInheritedFlags().VisitAll(func(f *pflag.Flag) {
		if f.Hidden {
			return
		}
		item := FlagSchema{
			Name:      f.Name,
			Shorthand: f.Shorthand,
			Type:      f.Value.Type(),
			Usage:     f.Usage,
			Default:   f.DefValue,
			Required:  isRequired(f),
		}
		items = append(items, item)
	})
	return items
}

func isRequired(f *pflag.Flag) bool {
	values := f.Annotations[cobra.BashCompOneRequiredFlag]
	return len(values) > 0 && values[0] == "true"
}

func contains(items []string, target string) bool {
	for _, item := range items {
		if item == target {
			return true
		}
	}
	return false
}
