package schema

import (
	"testing"

	"github.com/spf13/cobra"

	clierr "github.com/molted-work/molted-cli/internal/errors"
)

func testTree() *cobra.Command {
	root := &cobra.Command{Use: "molted"}
	child := &cobra.Command{Use: "messages", Short: "job messages"}
	leaf := &cobra.Command{
		Use:         "list",
		Short:       "list messages",
		Annotations: map[string]string{RequiresAnnotation: "api_key"},
	}
	leaf.Flags().String("job", "", "job ID")
	leaf.Flags().Int("limit", 50, "limit results")
	_ = leaf.MarkFlagRequired("job")
	child.AddCommand(leaf)
	root.AddCommand(child)
	return root
}

func TestBuildSchema(t *testing.T) {
	s, err := Build(testTree(), "messages list")
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if s.Path != "molted messages list" {
		t.Fatalf("unexpected path: %s", s.Path)
	}
	if len(s.Flags) != 2 {
		t.Fatalf("unexpected flags: %+v", s.Flags)
	}
	for _, f := range s.Flags {
		if f.Name == "job" && !f.Required {
			t.Fatal("expected job flag to be required")
		}
		if f.Name == "limit" && (f.Required || f.Default != "50") {
			t.Fatalf("unexpected limit flag: %+v", f)
		}
	}
	if len(s.Requires) != 1 || s.Requires[0] != "api_key" {
		t.Fatalf("unexpected requires: %+v", s.Requires)
	}
	if len(s.ExitCodes) != 0 {
		t.Fatal("exit codes belong to the root schema only")
	}
}

func TestBuildRootIncludesExitCodes(t *testing.T) {
	s, err := Build(testTree(), "")
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	found := false
	for _, ec := range s.ExitCodes {
		if ec.Code == int(clierr.CodeConflict) && ec.Type == string(clierr.KindConflict) {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected conflict exit code in %+v", s.ExitCodes)
	}
}

func TestBuildUnknownPath(t *testing.T) {
	_, err := Build(testTree(), "messages delete")
	if clierr.ExitCode(err) != int(clierr.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
