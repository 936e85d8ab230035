package parsers

// SymbolKind identifies what a Signature declares.
type SymbolKind string

const (
	KindClass         SymbolKind = "class"
	KindInterface     SymbolKind = "interface"
	KindTrait         SymbolKind = "trait"
	KindEnum          SymbolKind = "enum"
	KindMethod        SymbolKind = "method"
	KindFunction      SymbolKind = "function"
	KindConstant      SymbolKind = "constant"
	KindClassConstant SymbolKind = "class_constant"
	KindEnumCase      SymbolKind = "enum_case"
)

// IsClassLike reports whether the kind owns members.
func (k SymbolKind) IsClassLike() bool {
	return k == KindClass || k == KindInterface || k == KindTrait || k == KindEnum
}

// IsMember reports whether the kind is declared inside a class-like.
func (k SymbolKind) IsMember() bool {
	return k == KindMethod || k == KindClassConstant || k == KindEnumCase
}

// Param describes one formal parameter, with type and default copied verbatim.
type Param struct {
	Name       string // includes the leading $
	Type       string
	Default    string
	HasDefault bool
	ByRef      bool
	Variadic   bool
	// Attributes holds the parameter's attribute groups, e.g. "#[\SensitiveParameter]".
	Attributes string
	// Promotion holds the modifiers of a promoted constructor parameter,
	// e.g. "private readonly".
	Promotion string
}

// Signature is the externally visible shape of one declaration.
type Signature struct {
	Kind      SymbolKind
	Name      string
	Namespace string
	// Class is the qualified name of the owning class for members.
	Class string

	Params      []Param
	ReturnType  string
	ByRefReturn bool
	// Modifiers in canonical order: abstract/final, visibility, static, readonly.
	Modifiers []string

	// DocComment is the contiguous /** */ block preceding the declaration,
	// with continuation lines re-based to the column of the opening "/**".
	DocComment string
	// Attributes holds one "#[...]" group per entry.
	Attributes []string

	// Value is the initializer of a constant or backed enum case. Constants
	// whose value is only known at runtime carry a null placeholder.
	Value string

	// Extends and Implements hold the clause text of a class-like, e.g.
	// "extends WP_Widget" and "implements JsonSerializable". Names brought in
	// by a use import are fully qualified.
	Extends    string
	Implements string
	// BackingType is "string" or "int" for a backed enum.
	BackingType string

	// Imports are the class imports in effect where a top-level declaration
	// appears. Its doc comment may refer to them by alias.
	Imports []Import

	// Members of a class-like, in source order.
	Members []*Signature

	File string
	Line int
}

// QualifiedName returns the name a definition file uses for the symbol:
// "NS\Class", "NS\Class::member", "NS\function" or "CONSTANT".
func (s *Signature) QualifiedName() string {
	if s.Kind.IsMember() {
		return s.Class + "::" + s.Name
	}
	if s.Namespace == "" {
		return s.Name
	}
	return s.Namespace + `\` + s.Name
}

// HasModifier reports whether the declaration carries the given modifier.
func (s *Signature) HasModifier(mod string) bool {
	for _, m := range s.Modifiers {
		if m == mod {
			return true
		}
	}
	return false
}

// Member returns the member of a class-like with the given name and kind.
func (s *Signature) Member(name string, kind SymbolKind) *Signature {
	for _, m := range s.Members {
		if m.Kind == kind && m.Name == name {
			return m
		}
	}
	return nil
}

// FileSymbols is everything declared at top level in one source file.
type FileSymbols struct {
	Path    string
	Symbols []*Signature
}
