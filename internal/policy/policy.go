package policy

import (
	"fmt"
	"strings"

	clierr "github.com/molted-work/molted-cli/internal/errors"
)

// Introspection commands stay reachable under any allowlist.
var alwaysAllowed = []string{"version", "schema", "help"}

// CheckCommandAllowed enforces --enable-commands. An entry allows the exact
// command path and every subcommand beneath it, so "messages" admits both
// "messages list" and "messages send".
func CheckCommandAllowed(allowlist []string, commandPath string) error {
	if len(allowlist) == 0 {
		return nil
	}
	normPath := normalize(commandPath)
	for _, allowed := range alwaysAllowed {
		if covers(allowed, normPath) {
			return nil
		}
	}
	for _, allowed := range allowlist {
		if covers(normalize(allowed), normPath) {
			return nil
		}
	}
	e := clierr.New(clierr.CodeBlocked, fmt.Sprintf("command %q blocked by --enable-commands policy", normPath))
	e.Field = "enable_commands"
	return e
}

func covers(entry, path string) bool {
	if entry == "" {
		return false
	}
	return path == entry || strings.HasPrefix(path, entry+" ")
}

func normalize(v string) string {
	parts := strings.Fields(strings.ToLower(strings.TrimSpace(v)))
	return strings.Join(parts, " ")
}
