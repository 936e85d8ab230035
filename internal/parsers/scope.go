package parsers

import (
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

// Import is one class import, `use Name as Alias;`.
type Import struct {
	Name  string // fully qualified, without the leading backslash
	Alias string
}

// Clause returns the import as written after `use`.
func (i Import) Clause() string {
	if strings.EqualFold(i.Alias, lastSegment(i.Name)) {
		return i.Name
	}
	return i.Name + " as " + i.Alias
}

// scope is the namespace and the class imports in effect at a point of a file.
type scope struct {
	namespace string
	imports   []Import
	byAlias   map[string]string // lower-cased alias -> fully qualified name
}

func newScope(namespace string) *scope {
	return &scope{namespace: namespace, byAlias: map[string]string{}}
}

// addUses records the class imports of a namespace_use_declaration. Function
// and constant imports are ignored since stubs never refer to them.
func (s *scope) addUses(decl *sitter.Node, source []byte) {
	if decl.ChildByFieldName("type") != nil {
		return
	}

	prefix := ""
	clauses := findChildrenByType(decl, "namespace_use_clause")
	if group := decl.ChildByFieldName("body"); group != nil {
		prefix = extractNodeText(findChildByType(decl, "namespace_name"), source) + `\`
		clauses = findChildrenByType(group, "namespace_use_clause")
	}

	for _, clause := range clauses {
		if clause.ChildByFieldName("type") != nil {
			continue
		}
		var target *sitter.Node
		for _, c := range namedChildren(clause) {
			if c.Kind() == "name" || c.Kind() == "qualified_name" {
				target = c
				break
			}
		}
		if target == nil {
			continue
		}

		name := strings.TrimPrefix(prefix+extractNodeText(target, source), `\`)
		alias := fieldText(clause, "alias", source)
		if alias == "" {
			alias = lastSegment(name)
		}
		key := strings.ToLower(alias)
		if _, dup := s.byAlias[key]; dup {
			continue
		}
		s.byAlias[key] = name
		s.imports = append(s.imports, Import{Name: name, Alias: alias})
	}
}

// snapshot copies the imports for a declaration.
func (s *scope) snapshot() []Import {
	if len(s.imports) == 0 {
		return nil
	}
	return append([]Import(nil), s.imports...)
}

// qualify rewrites a class name whose first segment is an imported alias to
// its fully qualified form. Other names are returned unchanged.
func (s *scope) qualify(name string) string {
	if strings.HasPrefix(name, `\`) || len(s.byAlias) == 0 {
		return name
	}
	first, rest := name, ""
	if i := strings.IndexByte(name, '\\'); i >= 0 {
		first, rest = name[:i], name[i:]
	}
	if fq, ok := s.byAlias[strings.ToLower(first)]; ok {
		return `\` + fq + rest
	}
	return name
}

// text returns the source of node with every class reference qualified, so
// the text keeps its meaning once moved out of the file's import context.
func (s *scope) text(node *sitter.Node, source []byte) string {
	if node == nil {
		return ""
	}
	if len(s.byAlias) == 0 {
		return extractNodeText(node, source)
	}

	var refs []*sitter.Node
	collectClassRefs(node, &refs)

	var sb strings.Builder
	pos := node.StartByte()
	for _, ref := range refs {
		sb.Write(source[pos:ref.StartByte()])
		sb.WriteString(s.qualify(extractNodeText(ref, source)))
		pos = ref.EndByte()
	}
	sb.Write(source[pos:node.EndByte()])
	return sb.String()
}

// collectClassRefs appends, in source order, the nodes under node that name
// a class: types, extends/implements lists, attribute names and the class
// side of `Foo::BAR` and `new Foo`.
func collectClassRefs(node *sitter.Node, refs *[]*sitter.Node) {
	switch node.Kind() {
	case "named_type":
		*refs = append(*refs, node)
		return
	case "base_clause", "class_interface_clause":
		for _, c := range namedChildren(node) {
			if isClassName(c) {
				*refs = append(*refs, c)
			}
		}
		return
	case "attribute", "class_constant_access_expression", "object_creation_expression",
		"scoped_call_expression", "scoped_property_access_expression":
		named := namedChildren(node)
		if len(named) > 0 && isClassName(named[0]) {
			*refs = append(*refs, named[0])
			for _, c := range named[1:] {
				collectClassRefs(c, refs)
			}
			return
		}
	}
	for _, c := range namedChildren(node) {
		collectClassRefs(c, refs)
	}
}

func isClassName(node *sitter.Node) bool {
	return node.Kind() == "name" || node.Kind() == "qualified_name"
}

func lastSegment(name string) string {
	if i := strings.LastIndexByte(name, '\\'); i >= 0 {
		return name[i+1:]
	}
	return name
}

// constantExpression reports whether an expression can be evaluated at
// compile time: literals, constants, class constants and operators over them.
func constantExpression(node *sitter.Node) bool {
	switch node.Kind() {
	case "integer", "float", "string", "boolean", "null", "nowdoc",
		"name", "qualified_name", "relative_scope":
		return true
	case "encapsed_string", "heredoc":
		return plainString(node)
	case "class_constant_access_expression", "unary_op_expression", "binary_expression",
		"parenthesized_expression", "conditional_expression",
		"array_creation_expression", "array_element_initializer":
		for _, c := range namedChildren(node) {
			if !constantExpression(c) {
				return false
			}
		}
		return true
	}
	return false
}

// plainString reports whether a double-quoted string or heredoc has no
// interpolation.
func plainString(node *sitter.Node) bool {
	for _, c := range namedChildren(node) {
		switch c.Kind() {
		case "string_content", "escape_sequence", "heredoc_start", "heredoc_end", "heredoc_body":
			if c.Kind() == "heredoc_body" && !plainString(c) {
				return false
			}
		default:
			return false
		}
	}
	return true
}
