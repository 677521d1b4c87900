package code_analyzer

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/hkogrunt/grunt/embed_data"
	"github.com/hkogrunt/grunt/utils"
	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/csharp"
	"github.com/smacker/go-tree-sitter/golang"
	"github.com/smacker/go-tree-sitter/java"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/python"
	"github.com/smacker/go-tree-sitter/typescript/typescript"
)

// fallbackLines is how much of an unsupported file an outline keeps.
const fallbackLines = 20

type outlineItem struct {
	tag  string
	name string
	row  uint32
	col  uint32
}

// Outline summarizes sourceCode as one "tag: Name (line N)" entry per
// declaration. Files in languages without a grammar, or that fail to parse,
// are summarized by their first lines instead.
func Outline(ctx context.Context, filePath string, sourceCode []byte) []string {
	items, err := outlineItems(ctx, filePath, sourceCode)
	if err != nil || len(items) == 0 {
		return firstLines(sourceCode, fallbackLines)
	}

	elements := make([]string, 0, len(items))
	for _, item := range items {
		elements = append(elements, fmt.Sprintf("%s: %s (line %d)", item.tag, item.name, item.row+1))
	}
	return elements
}

func outlineItems(ctx context.Context, filePath string, sourceCode []byte) ([]outlineItem, error) {
	var lang *sitter.Language
	var query []byte

	switch utils.GetSupportedLanguage(filePath) {
	case "csharp":
		lang, query = csharp.GetLanguage(), embed_data.CSharpQuery
	case "go":
		lang, query = golang.GetLanguage(), embed_data.GoQuery
	case "python":
		lang, query = python.GetLanguage(), embed_data.PythonQuery
	case "java":
		lang, query = java.GetLanguage(), embed_data.JavaQuery
	case "javascript":
		lang, query = javascript.GetLanguage(), embed_data.JavascriptQuery
	case "typescript":
		lang, query = typescript.GetLanguage(), embed_data.TypescriptQuery
	default:
		return nil, nil
	}

	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(lang)

	tree, err := parser.ParseCtx(ctx, nil, sourceCode)
	if err != nil {
		return nil, err
	}
	defer tree.Close()

	queries := make(map[string]string)
	if err := json.Unmarshal(query, &queries); err != nil {
		return nil, fmt.Errorf("failed to parse queries: %w", err)
	}

	var items []outlineItem
	for tag, queryStr := range queries {
		q, err := sitter.NewQuery([]byte(queryStr), lang)
		if err != nil {
			return nil, fmt.Errorf("failed to compile %s query: %w", tag, err)
		}

		cursor := sitter.NewQueryCursor()
		cursor.Exec(q, tree.RootNode())
		for {
			match, ok := cursor.NextMatch()
			if !ok {
				break
			}
			for _, capture := range match.Captures {
				start := capture.Node.StartPoint()
				items = append(items, outlineItem{
					tag:  tag,
					name: capture.Node.Content(sourceCode),
					row:  start.Row,
					col:  start.Column,
				})
			}
		}
		cursor.Close()
		q.Close()
	}

	// Map iteration is random; source position gives a stable order.
	sort.Slice(items, func(i, j int) bool {
		if items[i].row != items[j].row {
			return items[i].row < items[j].row
		}
		if items[i].col != items[j].col {
			return items[i].col < items[j].col
		}
		return items[i].tag < items[j].tag
	})
	return items, nil
}

func firstLines(sourceCode []byte, n int) []string {
	lines := strings.Split(strings.TrimRight(string(sourceCode), "\n"), "\n")
	if len(lines) > n {
		lines = lines[:n]
	}
	return lines
}
