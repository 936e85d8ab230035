package parsers

import (
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

// extractNodeText extracts the text content of a tree-sitter node.
func extractNodeText(node *sitter.Node, source []byte) string {
	if node == nil {
		return ""
	}
	return string(source[node.StartByte():node.EndByte()])
}

// fieldText returns the text of a named field child, or "".
func fieldText(node *sitter.Node, field string, source []byte) string {
	return extractNodeText(node.ChildByFieldName(field), source)
}

// lineOf returns the 1-based start line of a node.
func lineOf(node *sitter.Node) int {
	return int(node.StartPosition().Row) + 1
}

// findChildByType finds the first child node with the given type.
func findChildByType(node *sitter.Node, nodeType string) *sitter.Node {
	if node == nil {
		return nil
	}

	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(uint(i))
		if child != nil && child.Kind() == nodeType {
			return child
		}
	}
	return nil
}

// findChildrenByType finds all child nodes with the given type.
func findChildrenByType(node *sitter.Node, nodeType string) []*sitter.Node {
	var results []*sitter.Node
	if node == nil {
		return results
	}

	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(uint(i))
		if child != nil && child.Kind() == nodeType {
			results = append(results, child)
		}
	}
	return results
}

// namedChildren returns the named children of a node.
func namedChildren(node *sitter.Node) []*sitter.Node {
	if node == nil {
		return nil
	}
	count := int(node.NamedChildCount())
	results := make([]*sitter.Node, 0, count)
	for i := 0; i < count; i++ {
		if child := node.NamedChild(uint(i)); child != nil {
			results = append(results, child)
		}
	}
	return results
}

// precedingDocComment returns the /** */ comment directly above a
// declaration. A blank line between the two breaks the association.
// Continuation lines are re-based to the column of the opening "/**" so the
// comment can be re-indented without losing its inner layout.
func precedingDocComment(node *sitter.Node, source []byte) string {
	prev := node.PrevNamedSibling()
	if prev == nil || prev.Kind() != "comment" {
		return ""
	}

	text := extractNodeText(prev, source)
	if !strings.HasPrefix(text, "/**") || !strings.HasSuffix(text, "*/") {
		return ""
	}

	if int(prev.EndPosition().Row)+1 < int(node.StartPosition().Row) {
		return ""
	}
	return rebaseComment(text, lineIndent(source, prev.StartByte()))
}

// lineIndent returns the whitespace between the start of the line holding
// offset and offset itself, or "" when other code precedes it.
func lineIndent(source []byte, offset uint) string {
	start := offset
	for start > 0 && source[start-1] != '\n' {
		start--
	}
	indent := string(source[start:offset])
	if strings.Trim(indent, " \t") != "" {
		return ""
	}
	return indent
}

// rebaseComment strips indent from every line after the first. Lines that
// are indented less than the opening line keep only their text, with a
// leading "*" aligned under the opening one.
func rebaseComment(text, indent string) string {
	if indent == "" || !strings.Contains(text, "\n") {
		return text
	}
	lines := strings.Split(text, "\n")
	for i := 1; i < len(lines); i++ {
		line := lines[i]
		switch {
		case strings.HasPrefix(line, indent):
			lines[i] = line[len(indent):]
		case strings.HasPrefix(strings.TrimLeft(line, " \t"), "*"):
			lines[i] = " " + strings.TrimLeft(line, " \t")
		default:
			lines[i] = strings.TrimLeft(line, " \t")
		}
	}
	return strings.Join(lines, "\n")
}

// firstError returns the first ERROR or MISSING node under root, if any.
func firstError(root *sitter.Node) *sitter.Node {
	if root == nil || !root.HasError() {
		return nil
	}
	if root.IsError() || root.IsMissing() {
		return root
	}
	for i := 0; i < int(root.ChildCount()); i++ {
		if found := firstError(root.Child(uint(i))); found != nil {
			return found
		}
	}
	return root
}
