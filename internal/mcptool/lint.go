package mcptool

import (
	"context"
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const (
	defaultMaxFuncLines = 80
	defaultMaxParams    = 5
)

// LintInput is the MCP tool input for static source checks.
type LintInput struct {
	Source       string `json:"source" jsonschema:"Go source code to lint"`
	Filename     string `json:"filename,omitempty" jsonschema:"optional filename used in diagnostics"`
	MaxFuncLines int    `json:"max_func_lines,omitempty" jsonschema:"function length threshold (default 80)"`
	MaxParams    int    `json:"max_params,omitempty" jsonschema:"parameter count threshold (default 5)"`
}

// LintIssue is one diagnostic with its location.
type LintIssue struct {
	Line    int    `json:"line" jsonschema:"line number of the issue"`
	Rule    string `json:"rule" jsonschema:"stable rule identifier"`
	Message string `json:"message" jsonschema:"human-readable diagnostic"`
}

// LintResult is the MCP tool output for static source checks.
type LintResult struct {
	Issues []LintIssue `json:"issues" jsonschema:"diagnostics found in the source"`
	Count  int         `json:"count" jsonschema:"number of diagnostics"`
}

// LintTool defines the MCP tool schema for linting Go source.
func LintTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "lint_source",
		Description: "Run static checks on a Go source file: long functions, wide parameter lists, undocumented exported declarations",
	}
}

// LintHandler parses the source and applies the checks.
func LintHandler() mcp.ToolHandlerFor[LintInput, LintResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input LintInput) (*mcp.CallToolResult, LintResult, error) {
		source := strings.TrimSpace(input.Source)
		if source == "" {
			return nil, LintResult{}, fmt.Errorf("source is required")
		}
		filename := input.Filename
		if filename == "" {
			filename = "input.go"
		}

		issues, err := lintSource(filename, source, input.MaxFuncLines, input.MaxParams)
		if err != nil {
			return nil, LintResult{}, err
		}
		return nil, LintResult{Issues: issues, Count: len(issues)}, nil
	}
}

func lintSource(filename, source string, maxFuncLines, maxParams int) ([]LintIssue, error) {
	if maxFuncLines <= 0 {
		maxFuncLines = defaultMaxFuncLines
	}
	if maxParams <= 0 {
		maxParams = defaultMaxParams
	}

	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, filename, source, parser.ParseComments)
	if err != nil {
		return nil, fmt.Errorf("parse source failed: %w", err)
	}

	issues := []LintIssue{}
	for _, decl := range file.Decls {
		switch d := decl.(type) {
		case *ast.FuncDecl:
			issues = append(issues, lintFunc(fset, d, maxFuncLines, maxParams)...)
		case *ast.GenDecl:
			issues = append(issues, lintGenDecl(fset, d)...)
		}
	}
	return issues, nil
}

func lintFunc(fset *token.FileSet, fn *ast.FuncDecl, maxFuncLines, maxParams int) []LintIssue {
	var issues []LintIssue
	start := fset.Position(fn.Pos())

	if fn.Body != nil {
		lines := fset.Position(fn.Body.End()).Line - start.Line + 1
		if lines > maxFuncLines {
			issues = append(issues, LintIssue{
				Line:    start.Line,
				Rule:    "func-too-long",
				Message: fmt.Sprintf("function %s is %d lines (max %d)", fn.Name.Name, lines, maxFuncLines),
			})
		}
	}

	params := 0
	if fn.Type.Params != nil {
		for _, field := range fn.Type.Params.List {
			n := len(field.Names)
			if n == 0 {
				n = 1
			}
			params += n
		}
	}
	if params > maxParams {
		issues = append(issues, LintIssue{
			Line:    start.Line,
			Rule:    "too-many-params",
			Message: fmt.Sprintf("function %s takes %d parameters (max %d)", fn.Name.Name, params, maxParams),
		})
	}

	if fn.Name.IsExported() && fn.Doc == nil {
		issues = append(issues, LintIssue{
			Line:    start.Line,
			Rule:    "missing-doc",
			Message: fmt.Sprintf("exported function %s has no doc comment", fn.Name.Name),
		})
	}
	return issues
}

func lintGenDecl(fset *token.FileSet, decl *ast.GenDecl) []LintIssue {
	if decl.Tok != token.TYPE {
		return nil
	}
	var issues []LintIssue
	for _, spec := range decl.Specs {
		ts, ok := spec.(*ast.TypeSpec)
		if !ok || !ts.Name.IsExported() {
			continue
		}
		if decl.Doc == nil && ts.Doc == nil {
			issues = append(issues, LintIssue{
				Line:    fset.Position(ts.Pos()).Line,
				Rule:    "missing-doc",
				Message: fmt.Sprintf("exported type %s has no doc comment", ts.Name.Name),
			})
		}
	}
	return issues
}
