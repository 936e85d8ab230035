package stubs

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/mvp-joe/stubgen/internal/errors"
	"github.com/mvp-joe/stubgen/internal/index"
	"github.com/mvp-joe/stubgen/internal/parsers"
)

const indentUnit = "    "

// DefaultGenerator is the regeneration reference used when none is configured.
const DefaultGenerator = "stubgen generate"

// Header carries the metadata printed at the top of every stub file.
type Header struct {
	Library  string
	Version  string
	Homepage string
	// Generator is the command readers are told to run to regenerate the file.
	Generator string
}

// block is one top-level declaration in output order.
type block struct {
	symbol *parsers.Signature
	// members holds the requested members of a class block.
	members []*parsers.Signature
	// full is set once the whole class was requested.
	full bool
}

func (b *block) hasMember(m *parsers.Signature) bool {
	for _, existing := range b.members {
		if existing == m {
			return true
		}
	}
	return false
}

// Render produces the stub file for the resolved declarations. Declarations
// keep their request order; members of one class are grouped into a single
// class block placed where the class is first requested.
func Render(header Header, decls []index.Resolved) ([]byte, error) {
	blocks, err := group(decls)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	writeHeader(&buf, header)

	namespaced := false
	for _, b := range blocks {
		if b.symbol.Namespace != "" {
			namespaced = true
			break
		}
	}

	if !namespaced {
		if uses := useClauses(blocks, true); len(uses) > 0 {
			buf.WriteString("\n")
			writeUses(&buf, uses, "")
		}
		for _, b := range blocks {
			buf.WriteString("\n")
			writeBlock(&buf, b, "")
		}
		return buf.Bytes(), nil
	}

	for i := 0; i < len(blocks); {
		ns := blocks[i].symbol.Namespace
		end := i
		for end < len(blocks) && blocks[end].symbol.Namespace == ns {
			end++
		}
		run := blocks[i:end]
		i = end

		buf.WriteString("\n")
		if ns == "" {
			buf.WriteString("namespace {\n")
		} else {
			fmt.Fprintf(&buf, "namespace %s {\n", ns)
		}
		uses := useClauses(run, ns == "")
		writeUses(&buf, uses, indentUnit)
		for j, b := range run {
			if j > 0 || len(uses) > 0 {
				buf.WriteString("\n")
			}
			writeBlock(&buf, b, indentUnit)
		}
		buf.WriteString("}\n")
	}
	return buf.Bytes(), nil
}

// Declarations counts the declarations Render writes for decls: every
// function, constant and class-like, plus each member of a class block.
func Declarations(decls []index.Resolved) int {
	blocks, err := group(decls)
	if err != nil {
		return 0
	}
	n := 0
	for _, b := range blocks {
		n += 1 + len(b.members)
	}
	return n
}

// useClauses collects the class imports of a run of blocks sharing one
// namespace, so names in copied doc comments still resolve. The first import
// of an alias wins. Aliases naming a class-like declared in the run are
// dropped, and so are single-segment imports in the global namespace, which
// PHP rejects as having no effect.
func useClauses(blocks []*block, global bool) []string {
	declared := make(map[string]bool)
	for _, b := range blocks {
		if b.symbol.Kind.IsClassLike() {
			declared[strings.ToLower(b.symbol.Name)] = true
		}
	}

	taken := make(map[string]bool)
	var clauses []string
	for _, b := range blocks {
		for _, imp := range b.symbol.Imports {
			alias := strings.ToLower(imp.Alias)
			if taken[alias] || declared[alias] {
				continue
			}
			if global && !strings.Contains(imp.Name, `\`) {
				continue
			}
			taken[alias] = true
			clauses = append(clauses, imp.Clause())
		}
	}
	return clauses
}

func writeUses(buf *bytes.Buffer, clauses []string, indent string) {
	for _, c := range clauses {
		fmt.Fprintf(buf, "%suse %s;\n", indent, c)
	}
}

func group(decls []index.Resolved) ([]*block, error) {
	var blocks []*block
	classes := make(map[*parsers.Signature]*block)
	seen := make(map[*parsers.Signature]bool)

	for _, d := range decls {
		if d.Symbol == nil {
			return nil, errors.Newf("no declaration bound to %s", d.Request)
		}

		switch {
		case d.Owner != nil:
			b, ok := classes[d.Owner]
			if !ok {
				b = &block{symbol: d.Owner}
				classes[d.Owner] = b
				blocks = append(blocks, b)
			}
			if !b.full && !b.hasMember(d.Symbol) {
				b.members = append(b.members, d.Symbol)
			}

		case d.Symbol.Kind.IsClassLike():
			b, ok := classes[d.Symbol]
			if !ok {
				b = &block{symbol: d.Symbol}
				classes[d.Symbol] = b
				blocks = append(blocks, b)
			}
			b.full = true
			b.members = d.Symbol.Members

		case d.Symbol.Kind == parsers.KindFunction, d.Symbol.Kind == parsers.KindConstant:
			if seen[d.Symbol] {
				continue
			}
			seen[d.Symbol] = true
			blocks = append(blocks, &block{symbol: d.Symbol})

		default:
			return nil, errors.Newf("cannot render %s %s outside its class", d.Symbol.Kind, d.Symbol.QualifiedName())
		}
	}
	return blocks, nil
}

func writeHeader(buf *bytes.Buffer, h Header) {
	library := h.Library
	if library == "" {
		library = "library"
	}
	generator := h.Generator
	if generator == "" {
		generator = DefaultGenerator
	}

	buf.WriteString("<?php\n")
	buf.WriteString("\n/**\n")
	if h.Version != "" {
		fmt.Fprintf(buf, " * Generated stubs for %s %s.\n", library, h.Version)
	} else {
		fmt.Fprintf(buf, " * Generated stubs for %s.\n", library)
	}
	if h.Homepage != "" {
		buf.WriteString(" *\n")
		fmt.Fprintf(buf, " * @see %s\n", h.Homepage)
	}
	buf.WriteString(" *\n")
	fmt.Fprintf(buf, " * Do not edit by hand. Regenerate with `%s`.\n", generator)
	buf.WriteString(" */\n")
}

func writeBlock(buf *bytes.Buffer, b *block, indent string) {
	sig := b.symbol
	switch {
	case sig.Kind.IsClassLike():
		writeClass(buf, sig, b.members, indent)
	case sig.Kind == parsers.KindFunction:
		writeFunction(buf, sig, indent, false)
	case sig.Kind == parsers.KindConstant:
		writeDoc(buf, sig.DocComment, indent)
		fmt.Fprintf(buf, "%sconst %s = %s;\n", indent, sig.Name, sig.Value)
	}
}

func writeClass(buf *bytes.Buffer, class *parsers.Signature, members []*parsers.Signature, indent string) {
	writeDoc(buf, class.DocComment, indent)
	writeAttributes(buf, class.Attributes, indent)

	var head []string
	if class.Kind == parsers.KindClass {
		head = append(head, class.Modifiers...)
	}
	name := class.Name
	if class.BackingType != "" {
		name += ": " + class.BackingType
	}
	head = append(head, string(class.Kind), name)
	if class.Extends != "" {
		head = append(head, class.Extends)
	}
	if class.Implements != "" {
		head = append(head, class.Implements)
	}

	fmt.Fprintf(buf, "%s%s\n%s{\n", indent, strings.Join(head, " "), indent)
	inner := indent + indentUnit
	for _, m := range members {
		switch m.Kind {
		case parsers.KindMethod:
			writeFunction(buf, m, inner, class.Kind == parsers.KindInterface)
		case parsers.KindClassConstant:
			writeDoc(buf, m.DocComment, inner)
			fmt.Fprintf(buf, "%s%sconst %s = %s;\n", inner, prefix(m.Modifiers), m.Name, m.Value)
		case parsers.KindEnumCase:
			writeDoc(buf, m.DocComment, inner)
			writeAttributes(buf, m.Attributes, inner)
			if m.Value != "" {
				fmt.Fprintf(buf, "%scase %s = %s;\n", inner, m.Name, m.Value)
			} else {
				fmt.Fprintf(buf, "%scase %s;\n", inner, m.Name)
			}
		}
	}
	fmt.Fprintf(buf, "%s}\n", indent)
}

// writeFunction renders a function or method with an empty body. Interface
// and abstract methods have no body at all.
func writeFunction(buf *bytes.Buffer, sig *parsers.Signature, indent string, bodiless bool) {
	writeDoc(buf, sig.DocComment, indent)
	writeAttributes(buf, sig.Attributes, indent)

	ref := ""
	if sig.ByRefReturn {
		ref = "&"
	}
	fmt.Fprintf(buf, "%s%sfunction %s%s(%s)", indent, prefix(sig.Modifiers), ref, sig.Name, renderParams(sig.Params))
	if sig.ReturnType != "" {
		fmt.Fprintf(buf, ": %s", sig.ReturnType)
	}

	if bodiless || sig.HasModifier("abstract") {
		buf.WriteString(";\n")
		return
	}
	fmt.Fprintf(buf, "\n%s{\n%s}\n", indent, indent)
}

func renderParams(params []parsers.Param) string {
	parts := make([]string, 0, len(params))
	for _, p := range params {
		var sb strings.Builder
		if p.Attributes != "" {
			sb.WriteString(p.Attributes)
			sb.WriteString(" ")
		}
		if p.Promotion != "" {
			sb.WriteString(p.Promotion)
			sb.WriteString(" ")
		}
		if p.Type != "" {
			sb.WriteString(p.Type)
			sb.WriteString(" ")
		}
		if p.ByRef {
			sb.WriteString("&")
		}
		if p.Variadic {
			sb.WriteString("...")
		}
		sb.WriteString(p.Name)
		if p.HasDefault {
			sb.WriteString(" = ")
			sb.WriteString(p.Default)
		}
		parts = append(parts, sb.String())
	}
	return strings.Join(parts, ", ")
}

func prefix(mods []string) string {
	if len(mods) == 0 {
		return ""
	}
	return strings.Join(mods, " ") + " "
}

// writeAttributes writes one attribute group per line.
func writeAttributes(buf *bytes.Buffer, groups []string, indent string) {
	for _, g := range groups {
		fmt.Fprintf(buf, "%s%s\n", indent, g)
	}
}

// writeDoc copies a doc comment at the declaration's indentation. The
// comment's continuation lines are relative to its opening "/**", so any
// deeper indentation inside them is kept.
func writeDoc(buf *bytes.Buffer, doc, indent string) {
	if doc == "" {
		return
	}
	lines := strings.Split(strings.ReplaceAll(doc, "\r\n", "\n"), "\n")
	for _, line := range lines {
		line = strings.TrimRight(line, " \t")
		if line == "" {
			buf.WriteString("\n")
			continue
		}
		buf.WriteString(indent)
		buf.WriteString(line)
		buf.WriteString("\n")
	}
}
