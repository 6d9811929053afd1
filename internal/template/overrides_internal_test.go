package template

import (
	"testing"

	"github.com/hugo-lorenzo-mato/quorum-ai/internal/testutil"
)

func TestParseSetOverrides_LastWriteWins(t *testing.T) {
	overrides, err := parseSetOverrides([]string{"one=1", "two=2", "one=3"})
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, overrides["one"], "3")
	testutil.AssertEqual(t, overrides["two"], "2")
}

func TestParseSetOverrides_RejectsMissingEquals(t *testing.T) {
	_, err := parseSetOverrides([]string{"missing"})
	testutil.AssertError(t, err)
	testutil.AssertContains(t, err.Error(), "expected KEY=VALUE")
}

func TestApplyNamedAliases_MapsAliasToDeclaredParam(t *testing.T) {
	spec := InputSpec{
		Params: []string{"slug", "spec_file"},
		Named:  map[string]string{"name": "slug", "file": "spec_file"},
	}
	overrides := map[string]string{"name": "my-change", "file": "specs/DEFAULT.md"}

	err := applyNamedAliases("draft", spec, overrides)
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, overrides["slug"], "my-change")
	testutil.AssertEqual(t, overrides["spec_file"], "specs/DEFAULT.md")
	if _, ok := overrides["name"]; ok {
		t.Fatal("alias key should have been replaced by the canonical param")
	}
}

func TestApplyNamedAliases_RejectsAliasPlusExplicitTarget(t *testing.T) {
	spec := InputSpec{
		Params: []string{"slug"},
		Named:  map[string]string{"name": "slug"},
	}
	overrides := map[string]string{"name": "alpha", "slug": "beta"}

	err := applyNamedAliases("draft", spec, overrides)
	testutil.AssertError(t, err)
	testutil.AssertContains(t, err.Error(), "provided multiple ways")
}

func TestApplyPositionalInputs_RejectsOverflow(t *testing.T) {
	spec := InputSpec{Params: []string{"a"}, Positional: []string{"a"}}
	err := applyPositionalInputs("draft", spec, []string{"x", "y"}, map[string]string{})
	testutil.AssertError(t, err)
	testutil.AssertContains(t, err.Error(), "at most 1 positional")
}

func TestApplyPositionalInputs_RejectsWhenNoPositionalDeclared(t *testing.T) {
	spec := InputSpec{Params: []string{"a"}}
	err := applyPositionalInputs("draft", spec, []string{"x"}, map[string]string{})
	testutil.AssertError(t, err)
	testutil.AssertContains(t, err.Error(), "does not define positional inputs")
}
