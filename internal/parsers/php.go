package parsers

import (
	"context"
	"os"
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"
	php "github.com/tree-sitter/tree-sitter-php/bindings/go"

	"github.com/mvp-joe/stubgen/internal/errors"
)

// PhpParser extracts declaration signatures from PHP files.
type PhpParser struct {
	language *sitter.Language
}

// NewPhpParser creates a new PHP parser.
func NewPhpParser() *PhpParser {
	return &PhpParser{
		language: sitter.NewLanguage(php.LanguagePHP()),
	}
}

// ParseFile parses a PHP source file.
func (p *PhpParser) ParseFile(ctx context.Context, filePath string) (*FileSymbols, error) {
	source, err := os.ReadFile(filePath)
	if err != nil {
		return nil, errors.Wrapf(errors.Mark(err, errors.ErrUnreadableInput), "failed to read %s", filePath)
	}
	return p.ParseSource(ctx, filePath, source)
}

// ParseSource parses PHP source held in memory. A file that does not parse
// cleanly is rejected rather than partially extracted.
func (p *PhpParser) ParseSource(ctx context.Context, filePath string, source []byte) (*FileSymbols, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	parser := sitter.NewParser()
	defer parser.Close()

	if err := parser.SetLanguage(p.language); err != nil {
		return nil, errors.Wrap(err, "failed to load PHP grammar")
	}

	tree := parser.Parse(source, nil)
	if tree == nil {
		return nil, errors.Wrapf(errors.ErrUnparsableSource, "failed to parse %s", filePath)
	}
	defer tree.Close()

	rootNode := tree.RootNode()
	if bad := firstError(rootNode); bad != nil {
		return nil, errors.WithHint(
			errors.Wrapf(errors.ErrUnparsableSource, "%s:%d:%d: syntax error near %q",
				filePath, lineOf(bad), int(bad.StartPosition().Column)+1, snippet(extractNodeText(bad, source))),
			"exclude the file with source.ignore if it is not part of the library's public surface",
		)
	}

	fs := &FileSymbols{
		Path:    filePath,
		Symbols: []*Signature{},
	}

	p.extractStatements(rootNode, source, newScope(""), fs)

	return fs, nil
}

// extractStatements walks statement lists, descending into blocks such as
// `if (!function_exists(...)) { ... }` but never into function or class bodies.
// A namespace statement starts a fresh scope: imports do not carry over.
func (p *PhpParser) extractStatements(node *sitter.Node, source []byte, sc *scope, fs *FileSymbols) {
	for _, child := range namedChildren(node) {
		switch child.Kind() {
		case "namespace_definition":
			name := fieldText(child, "name", source)
			if body := child.ChildByFieldName("body"); body != nil {
				p.extractStatements(body, source, newScope(name), fs)
			} else {
				*sc = *newScope(name)
			}
		case "namespace_use_declaration":
			sc.addUses(child, source)
		case "class_declaration", "interface_declaration", "trait_declaration", "enum_declaration":
			if sig := p.extractClass(child, source, sc, fs.Path); sig != nil {
				fs.Symbols = append(fs.Symbols, sig)
			}
		case "function_definition":
			if sig := p.extractFunction(child, source, sc, fs.Path); sig != nil {
				fs.Symbols = append(fs.Symbols, sig)
			}
		case "const_declaration":
			consts := p.extractConsts(child, source, sc, "", fs.Path)
			for _, c := range consts {
				c.Imports = sc.snapshot()
			}
			fs.Symbols = append(fs.Symbols, consts...)
		case "expression_statement":
			if sig := p.extractDefine(child, source, sc, fs.Path); sig != nil {
				fs.Symbols = append(fs.Symbols, sig)
			}
		case "comment", "php_tag", "text", "text_interpolation", "anonymous_function",
			"arrow_function", "return_statement", "echo_statement":
			// nothing declared
		default:
			p.extractStatements(child, source, sc, fs)
		}
	}
}

// extractClass extracts a class, interface, trait or enum with its methods,
// constants and enum cases.
func (p *PhpParser) extractClass(node *sitter.Node, source []byte, sc *scope, path string) *Signature {
	name := fieldText(node, "name", source)
	if name == "" {
		return nil
	}

	kind := KindClass
	switch node.Kind() {
	case "interface_declaration":
		kind = KindInterface
	case "trait_declaration":
		kind = KindTrait
	case "enum_declaration":
		kind = KindEnum
	}

	sig := &Signature{
		Kind:        kind,
		Name:        name,
		Namespace:   sc.namespace,
		DocComment:  precedingDocComment(node, source),
		Attributes:  attributeGroups(node, source, sc),
		Modifiers:   modifiers(node, source),
		BackingType: extractNodeText(findChildByType(node, "primitive_type"), source),
		Imports:     sc.snapshot(),
		File:        path,
		Line:        lineOf(node),
	}
	if base := findChildByType(node, "base_clause"); base != nil {
		sig.Extends = sc.text(base, source)
	}
	if ifaces := findChildByType(node, "class_interface_clause"); ifaces != nil {
		sig.Implements = sc.text(ifaces, source)
	}

	qualified := sig.QualifiedName()
	bodyNode := node.ChildByFieldName("body")
	for _, member := range namedChildren(bodyNode) {
		switch member.Kind() {
		case "method_declaration":
			if m := p.extractMethod(member, source, sc, qualified, path); m != nil {
				sig.Members = append(sig.Members, m)
			}
		case "const_declaration":
			sig.Members = append(sig.Members, p.extractConsts(member, source, sc, qualified, path)...)
		case "enum_case":
			if c := p.extractEnumCase(member, source, sc, qualified, path); c != nil {
				sig.Members = append(sig.Members, c)
			}
		}
	}

	return sig
}

// extractEnumCase extracts one `case NAME [= value];` of an enum.
func (p *PhpParser) extractEnumCase(node *sitter.Node, source []byte, sc *scope, enumName, path string) *Signature {
	name := fieldText(node, "name", source)
	if name == "" {
		return nil
	}
	return &Signature{
		Kind:       KindEnumCase,
		Name:       name,
		Class:      enumName,
		Value:      sc.text(node.ChildByFieldName("value"), source),
		DocComment: precedingDocComment(node, source),
		Attributes: attributeGroups(node, source, sc),
		File:       path,
		Line:       lineOf(node),
	}
}

// extractMethod extracts a method from a class body.
func (p *PhpParser) extractMethod(node *sitter.Node, source []byte, sc *scope, className, path string) *Signature {
	name := fieldText(node, "name", source)
	if name == "" {
		return nil
	}

	return &Signature{
		Kind:        KindMethod,
		Name:        name,
		Class:       className,
		Params:      p.extractParams(node.ChildByFieldName("parameters"), source, sc),
		ReturnType:  sc.text(node.ChildByFieldName("return_type"), source),
		ByRefReturn: findChildByType(node, "reference_modifier") != nil,
		Modifiers:   modifiers(node, source),
		DocComment:  precedingDocComment(node, source),
		Attributes:  attributeGroups(node, source, sc),
		File:        path,
		Line:        lineOf(node),
	}
}

// extractFunction extracts a free function definition.
func (p *PhpParser) extractFunction(node *sitter.Node, source []byte, sc *scope, path string) *Signature {
	name := fieldText(node, "name", source)
	if name == "" {
		return nil
	}

	return &Signature{
		Kind:        KindFunction,
		Name:        name,
		Namespace:   sc.namespace,
		Params:      p.extractParams(node.ChildByFieldName("parameters"), source, sc),
		ReturnType:  sc.text(node.ChildByFieldName("return_type"), source),
		ByRefReturn: findChildByType(node, "reference_modifier") != nil,
		DocComment:  precedingDocComment(node, source),
		Attributes:  attributeGroups(node, source, sc),
		Imports:     sc.snapshot(),
		File:        path,
		Line:        lineOf(node),
	}
}

// extractParams extracts formal parameters. Types and defaults are kept
// verbatim apart from qualifying imported class names.
func (p *PhpParser) extractParams(paramsNode *sitter.Node, source []byte, sc *scope) []Param {
	params := []Param{}
	for _, n := range namedChildren(paramsNode) {
		var param Param
		switch n.Kind() {
		case "simple_parameter":
		case "variadic_parameter":
			param.Variadic = true
		case "property_promotion_parameter":
			var promo []string
			if v := n.ChildByFieldName("visibility"); v != nil {
				promo = append(promo, extractNodeText(v, source))
			}
			if r := n.ChildByFieldName("readonly"); r != nil {
				promo = append(promo, extractNodeText(r, source))
			} else if r := findChildByType(n, "readonly_modifier"); r != nil {
				promo = append(promo, extractNodeText(r, source))
			}
			param.Promotion = strings.Join(promo, " ")
		default:
			continue
		}

		nameNode := n.ChildByFieldName("name")
		if nameNode != nil && nameNode.Kind() == "by_ref" {
			// promoted by-reference parameters wrap the variable name
			param.ByRef = true
			nameNode = findChildByType(nameNode, "variable_name")
		}
		param.Name = extractNodeText(nameNode, source)
		param.Type = sc.text(n.ChildByFieldName("type"), source)
		param.Attributes = strings.Join(attributeGroups(n, source, sc), " ")
		if findChildByType(n, "reference_modifier") != nil {
			param.ByRef = true
		}
		if def := n.ChildByFieldName("default_value"); def != nil {
			param.Default = sc.text(def, source)
			param.HasDefault = true
		}
		params = append(params, param)
	}
	return params
}

// extractConsts extracts `const` declarations, top level or inside a class.
func (p *PhpParser) extractConsts(node *sitter.Node, source []byte, sc *scope, className, path string) []*Signature {
	kind := KindConstant
	var mods []string
	if className != "" {
		kind = KindClassConstant
		mods = modifiers(node, source)
	}
	doc := precedingDocComment(node, source)

	var consts []*Signature
	for _, element := range findChildrenByType(node, "const_element") {
		nameNode := element.ChildByFieldName("name")
		if nameNode == nil {
			nameNode = findChildByType(element, "name")
		}
		valueNode := element.ChildByFieldName("value")
		if valueNode == nil {
			if named := namedChildren(element); len(named) > 1 {
				valueNode = named[len(named)-1]
			}
		}
		if nameNode == nil || valueNode == nil {
			continue
		}

		sig := &Signature{
			Kind:       kind,
			Name:       extractNodeText(nameNode, source),
			Value:      sc.text(valueNode, source),
			Modifiers:  mods,
			DocComment: doc,
			File:       path,
			Line:       lineOf(element),
		}
		if className != "" {
			sig.Class = className
		} else {
			sig.Namespace = sc.namespace
		}
		consts = append(consts, sig)
	}
	return consts
}

// extractDefine extracts a global constant declared with define('NAME', value).
// Names built at runtime are skipped. Values that are not constant
// expressions, such as plugin_dir_path( __FILE__ ), become a null placeholder.
func (p *PhpParser) extractDefine(stmt *sitter.Node, source []byte, sc *scope, path string) *Signature {
	call := findChildByType(stmt, "function_call_expression")
	if call == nil {
		return nil
	}
	fn := strings.TrimPrefix(fieldText(call, "function", source), `\`)
	if !strings.EqualFold(fn, "define") {
		return nil
	}

	args := findChildrenByType(call.ChildByFieldName("arguments"), "argument")
	if len(args) < 2 {
		return nil
	}
	name, ok := stringLiteral(extractNodeText(args[0], source))
	if !ok || name == "" {
		return nil
	}

	value := dynamicValue
	if named := namedChildren(args[1]); len(named) > 0 {
		if expr := named[len(named)-1]; constantExpression(expr) {
			value = sc.text(expr, source)
		}
	}

	return &Signature{
		Kind:       KindConstant,
		Name:       strings.TrimPrefix(name, `\`),
		Value:      value,
		DocComment: precedingDocComment(stmt, source),
		Imports:    sc.snapshot(),
		File:       path,
		Line:       lineOf(stmt),
	}
}

// dynamicValue stands in for a constant value that is only known at runtime.
const dynamicValue = "null"

// attributeGroups returns the "#[...]" groups attached to a declaration or
// parameter, with imported class names qualified.
func attributeGroups(node *sitter.Node, source []byte, sc *scope) []string {
	var groups []string
	for _, group := range findChildrenByType(node.ChildByFieldName("attributes"), "attribute_group") {
		groups = append(groups, sc.text(group, source))
	}
	return groups
}

// modifiers collects declaration modifiers in canonical order.
func modifiers(node *sitter.Node, source []byte) []string {
	var abstractFinal, visibility, static, readonly []string
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(uint(i))
		if child == nil {
			continue
		}
		switch child.Kind() {
		case "abstract_modifier":
			abstractFinal = append(abstractFinal, "abstract")
		case "final_modifier":
			abstractFinal = append(abstractFinal, "final")
		case "visibility_modifier":
			visibility = append(visibility, strings.ToLower(extractNodeText(child, source)))
		case "static_modifier":
			static = append(static, "static")
		case "readonly_modifier":
			readonly = append(readonly, "readonly")
		}
	}

	var mods []string
	mods = append(mods, abstractFinal...)
	mods = append(mods, visibility...)
	mods = append(mods, static...)
	mods = append(mods, readonly...)
	return mods
}

// stringLiteral unquotes a plain single- or double-quoted PHP string without
// interpolation.
func stringLiteral(text string) (string, bool) {
	if len(text) < 2 {
		return "", false
	}
	quote := text[0]
	if (quote != '\'' && quote != '"') || text[len(text)-1] != quote {
		return "", false
	}
	inner := text[1 : len(text)-1]
	if quote == '"' && strings.ContainsAny(inner, "$\\") {
		return "", false
	}
	if quote == '\'' {
		inner = strings.ReplaceAll(inner, `\'`, `'`)
		inner = strings.ReplaceAll(inner, `\\`, `\`)
	}
	return inner, true
}

// snippet shortens source text for error messages.
func snippet(text string) string {
	text = strings.TrimSpace(text)
	if i := strings.IndexByte(text, '\n'); i >= 0 {
		text = text[:i]
	}
	if len(text) > 40 {
		text = text[:40] + "..."
	}
	return text
}
