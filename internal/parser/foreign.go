package parser

import (
	"fmt"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/c"
	"github.com/smacker/go-tree-sitter/cpp"
	"github.com/smacker/go-tree-sitter/golang"
	"github.com/smacker/go-tree-sitter/java"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/typescript/typescript"

	"codebase-indexer/internal/models"
)

// foreignConfig binds a language to its tree-sitter grammar and the node
// kinds BlockExtractor's foreign path yields for it.
type foreignConfig struct {
	grammar *sitter.Language
	kinds   map[string]bool
}

var foreignTables = map[string]foreignConfig{
	"go": {
		grammar: golang.GetLanguage(),
		kinds:   kindSet("function_declaration", "method_declaration", "type_declaration"),
	},
	"java": {
		grammar: java.GetLanguage(),
		kinds:   kindSet("class_declaration", "method_declaration"),
	},
	"cpp": {
		grammar: cpp.GetLanguage(),
		kinds:   kindSet("function_definition", "class_specifier"),
	},
	"c": {
		grammar: c.GetLanguage(),
		kinds:   kindSet("function_definition"),
	},
	"javascript": {
		grammar: javascript.GetLanguage(),
		kinds:   kindSet("function_declaration", "class_declaration", "method_definition"),
	},
	"typescript": {
		grammar: typescript.GetLanguage(),
		kinds:   kindSet("function_declaration", "class_declaration", "method_definition"),
	},
}

func kindSet(kinds ...string) map[string]bool {
	out := make(map[string]bool, len(kinds))
	for _, k := range kinds {
		out[k] = true
	}
	return out
}

// foreignExtractor is the generic path used for every language other than
// Python: it yields exactly the node kinds named in the language's table,
// naming each block after its first "identifier" child (or the node kind
// itself if none), with signature == name.
type foreignExtractor struct {
	lang string
	cfg  foreignConfig
}

func (f foreignExtractor) Extract(filePath string, source []byte) ([]models.CodeBlock, error) {
	p := sitter.NewParser()
	p.SetLanguage(f.cfg.grammar)

	tree, err := p.ParseCtx(nil, nil, source)
	if err != nil {
		return nil, fmt.Errorf("parser: parse %s: %w", f.lang, err)
	}
	if tree == nil {
		return nil, fmt.Errorf("parser: parse %s: nil tree", f.lang)
	}
	defer tree.Close()

	var blocks []models.CodeBlock
	walkForeign(tree.RootNode(), source, filePath, f.cfg.kinds, &blocks)
	return blocks, nil
}

func walkForeign(node *sitter.Node, source []byte, filePath string, kinds map[string]bool, blocks *[]models.CodeBlock) {
	if node == nil {
		return
	}

	if kinds[node.Type()] {
		name := firstIdentifierChild(node, source)
		if name == "" {
			name = node.Type()
		}
		b := blockFromNode(node, source, filePath, node.Type(), name, name)
		*blocks = append(*blocks, *b)
	}

	for i := 0; i < int(node.ChildCount()); i++ {
		walkForeign(node.Child(i), source, filePath, kinds, blocks)
	}
}

func firstIdentifierChild(node *sitter.Node, source []byte) string {
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		if child.Type() == "identifier" {
			return child.Content(source)
		}
	}
	return ""
}
