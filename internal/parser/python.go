package parser

import (
	"fmt"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"

	"codebase-indexer/internal/models"
)

// pythonExtractor is the native parser path: it walks the Python grammar's
// function_definition and class_definition nodes and re-tags them into the
// function/async_function/class vocabulary. tree-sitter-python has no
// distinct "async_function_definition" kind — an async def is a
// function_definition whose first child is the "async" keyword token — so
// the async flag is recovered from that child rather than the node kind.
type pythonExtractor struct{}

func (pythonExtractor) Extract(filePath string, source []byte) ([]models.CodeBlock, error) {
	p := sitter.NewParser()
	p.SetLanguage(python.GetLanguage())

	tree, err := p.ParseCtx(nil, nil, source)
	if err != nil {
		return nil, fmt.Errorf("parser: parse python: %w", err)
	}
	if tree == nil {
		return nil, fmt.Errorf("parser: parse python: nil tree")
	}
	defer tree.Close()

	var blocks []models.CodeBlock
	walkPython(tree.RootNode(), source, filePath, &blocks)
	return blocks, nil
}

func walkPython(node *sitter.Node, source []byte, filePath string, blocks *[]models.CodeBlock) {
	if node == nil {
		return
	}

	switch node.Type() {
	case "function_definition":
		if b := pythonFunctionBlock(node, source, filePath); b != nil {
			*blocks = append(*blocks, *b)
		}
	case "class_definition":
		if b := pythonClassBlock(node, source, filePath); b != nil {
			*blocks = append(*blocks, *b)
		}
	}

	for i := 0; i < int(node.ChildCount()); i++ {
		walkPython(node.Child(i), source, filePath, blocks)
	}
}

func pythonFunctionBlock(node *sitter.Node, source []byte, filePath string) *models.CodeBlock {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return nil
	}
	name := nameNode.Content(source)

	blockType := "function"
	if isAsync(node) {
		blockType = "async_function"
	}

	params := pythonParamNames(node.ChildByFieldName("parameters"), source)
	signature := fmt.Sprintf("%s(%s)", name, strings.Join(params, ", "))

	return blockFromNode(node, source, filePath, blockType, name, signature)
}

func pythonClassBlock(node *sitter.Node, source []byte, filePath string) *models.CodeBlock {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return nil
	}
	name := nameNode.Content(source)
	return blockFromNode(node, source, filePath, "class", name, name)
}

func isAsync(node *sitter.Node) bool {
	if node.ChildCount() == 0 {
		return false
	}
	first := node.Child(0)
	return first != nil && first.Type() == "async"
}

func pythonParamNames(params *sitter.Node, source []byte) []string {
	if params == nil {
		return nil
	}
	var names []string
	for i := 0; i < int(params.ChildCount()); i++ {
		child := params.Child(i)
		switch child.Type() {
		case "identifier":
			names = append(names, child.Content(source))
		case "typed_parameter", "default_parameter", "typed_default_parameter":
			if id := child.ChildByFieldName("name"); id != nil {
				names = append(names, id.Content(source))
			} else if child.ChildCount() > 0 && child.Child(0).Type() == "identifier" {
				names = append(names, child.Child(0).Content(source))
			}
		}
	}
	return names
}

// blockFromNode converts a tree-sitter node into a CodeBlock with the
// invariant id format "<file_path>:<name>:<start_line>:<start_col>",
// 1-based line and 0-based column.
func blockFromNode(node *sitter.Node, source []byte, filePath, blockType, name, signature string) *models.CodeBlock {
	start := node.StartPoint()
	end := node.EndPoint()
	line := int(start.Row) + 1
	col := int(start.Column)

	return &models.CodeBlock{
		ID:            fmt.Sprintf("%s:%s:%d:%d", filePath, name, line, col),
		Type:          blockType,
		Name:          name,
		FilePath:      filePath,
		LineNumber:    line,
		EndLineNumber: int(end.Row) + 1,
		Code:          node.Content(source),
		Signature:     signature,
	}
}
