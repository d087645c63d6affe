package mcptool

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rulesOf(issues []LintIssue) []string {
	rules := make([]string, len(issues))
	for i := range issues {
		rules[i] = issues[i].Rule
	}
	return rules
}

func TestLintSourceCleanFile(t *testing.T) {
	src := `package demo

// Add returns the sum of a and b.
func Add(a, b int) int {
	return a + b
}
`
	issues, err := lintSource("demo.go", src, 0, 0)
	require.NoError(t, err)
	assert.Empty(t, issues)
}

func TestLintSourceFlagsMissingDoc(t *testing.T) {
	src := `package demo

func Exported() {}

type Config struct{}

func unexported() {}
`
	issues, err := lintSource("demo.go", src, 0, 0)
	require.NoError(t, err)

	rules := rulesOf(issues)
	assert.Len(t, issues, 2)
	assert.Contains(t, rules, "missing-doc")
}

func TestLintSourceFlagsTooManyParams(t *testing.T) {
	src := `package demo

// Wide has a wide signature.
func Wide(a, b, c int, d string, e bool, f float64) {}
`
	issues, err := lintSource("demo.go", src, 0, 5)
	require.NoError(t, err)

	require.Len(t, issues, 1)
	assert.Equal(t, "too-many-params", issues[0].Rule)
	assert.Contains(t, issues[0].Message, "6 parameters")
}

func TestLintSourceFlagsLongFunction(t *testing.T) {
	src := "package demo\n\n// Long does too much.\nfunc Long() {\n"
	for i := 0; i < 10; i++ {
		src += "\t_ = 1\n"
	}
	src += "}\n"

	issues, err := lintSource("demo.go", src, 5, 0)
	require.NoError(t, err)

	require.Len(t, issues, 1)
	assert.Equal(t, "func-too-long", issues[0].Rule)
}

func TestLintSourceRejectsInvalidGo(t *testing.T) {
	_, err := lintSource("demo.go", "not go code", 0, 0)
	assert.Error(t, err)
}
