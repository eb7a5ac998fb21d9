package parse

import (
	"context"
	"strings"
	"unicode"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"
)

// parseGo walks a Go source file's Tree-sitter AST, collecting import paths
// and the names of package-level exported functions, methods, and types.
func parseGo(content []byte) ([]string, []string, error) {
	parser := sitter.NewParser()
	parser.SetLanguage(golang.GetLanguage())
	tree, err := parser.ParseCtx(context.Background(), nil, content)
	if err != nil {
		return nil, nil, err
	}
	root := tree.RootNode()

	var imports []string
	var symbols []string

	for i := 0; i < int(root.ChildCount()); i++ {
		child := root.Child(i)
		switch child.Type() {
		case "import_declaration":
			imports = append(imports, goImportPaths(child, content)...)
		case "function_declaration":
			if name := goDeclName(child, content); name != "" && isExported(name) {
				symbols = append(symbols, name)
			}
		case "method_declaration":
			if name := goDeclName(child, content); name != "" && isExported(name) {
				symbols = append(symbols, name)
			}
		case "type_declaration":
			symbols = append(symbols, goTypeNames(child, content)...)
		}
	}
	return imports, symbols, nil
}

func goImportPaths(node *sitter.Node, content []byte) []string {
	var paths []string
	var visit func(n *sitter.Node)
	visit = func(n *sitter.Node) {
		if n.Type() == "import_spec" {
			if p := n.ChildByFieldName("path"); p != nil {
				path := strings.Trim(string(content[p.StartByte():p.EndByte()]), `"`)
				if path != "" {
					paths = append(paths, path)
				}
			}
		}
		for i := 0; i < int(n.ChildCount()); i++ {
			visit(n.Child(i))
		}
	}
	visit(node)
	return paths
}

func goDeclName(node *sitter.Node, content []byte) string {
	n := node.ChildByFieldName("name")
	if n == nil {
		return ""
	}
	return string(content[n.StartByte():n.EndByte()])
}

func goTypeNames(node *sitter.Node, content []byte) []string {
	var names []string
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		if child.Type() != "type_spec" {
			continue
		}
		n := child.ChildByFieldName("name")
		if n == nil {
			continue
		}
		name := string(content[n.StartByte():n.EndByte()])
		if isExported(name) {
			names = append(names, name)
		}
	}
	return names
}

func isExported(name string) bool {
	r := []rune(name)
	return len(r) > 0 && unicode.IsUpper(r[0])
}
