package index

import (
	"context"
	"fmt"
	"os"
	"sort"

	"go.uber.org/zap"

	"github.com/mvp-joe/stubgen/internal/definition"
	"github.com/mvp-joe/stubgen/internal/errors"
	"github.com/mvp-joe/stubgen/internal/logger"
	"github.com/mvp-joe/stubgen/internal/parsers"
)

// Parser extracts signatures from one source file.
type Parser interface {
	ParseFile(ctx context.Context, filePath string) (*parsers.FileSymbols, error)
}

// Resolved is one definition-file request bound to its declaration.
type Resolved struct {
	Request definition.Request
	// Symbol is the class, function, constant or member that was requested.
	Symbol *parsers.Signature
	// Owner is the class that declares Symbol when Symbol is a member.
	Owner *parsers.Signature
}

// Index maps qualified names to the declarations found in a source tree.
type Index struct {
	classes   map[string]*parsers.Signature
	functions map[string]*parsers.Signature
	constants map[string]*parsers.Signature
	files     int
	log       *zap.SugaredLogger
}

// Build parses every file and indexes its top-level declarations. When the
// same name is declared more than once (function_exists() shims, polyfills),
// the first declaration in file order wins. onFile, if set, is called after
// each file is parsed.
func Build(ctx context.Context, files []string, parser Parser, cache *ParseCache, onFile func(path string)) (*Index, error) {
	idx := &Index{
		classes:   make(map[string]*parsers.Signature),
		functions: make(map[string]*parsers.Signature),
		constants: make(map[string]*parsers.Signature),
		log:       logger.ComponentLogger("index"),
	}

	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		fs, err := idx.parse(ctx, path, parser, cache)
		if err != nil {
			return nil, err
		}
		for _, sig := range fs.Symbols {
			idx.add(sig)
		}
		idx.files++

		if onFile != nil {
			onFile(path)
		}
	}

	return idx, nil
}

func (idx *Index) parse(ctx context.Context, path string, parser Parser, cache *ParseCache) (*parsers.FileSymbols, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, errors.Wrapf(errors.Mark(err, errors.ErrUnreadableInput), "failed to stat %s", path)
	}
	if fs, ok := cache.Get(path, info); ok {
		idx.log.Debugw("parse cache hit", logger.FieldFile, path)
		return fs, nil
	}

	fs, err := parser.ParseFile(ctx, path)
	if err != nil {
		return nil, err
	}
	cache.Put(path, info, fs)
	return fs, nil
}

func (idx *Index) add(sig *parsers.Signature) {
	var table map[string]*parsers.Signature
	switch {
	case sig.Kind.IsClassLike():
		table = idx.classes
	case sig.Kind == parsers.KindFunction:
		table = idx.functions
	case sig.Kind == parsers.KindConstant:
		table = idx.constants
	default:
		return
	}

	name := sig.QualifiedName()
	if first, exists := table[name]; exists {
		idx.log.Debugw("duplicate declaration ignored",
			logger.FieldSymbol, name,
			logger.FieldFile, sig.File,
			logger.FieldLine, sig.Line,
			"first", first.File,
		)
		return
	}
	table[name] = sig
}

// Files returns the number of files indexed.
func (idx *Index) Files() int {
	return idx.files
}

// Resolve binds a request to its declaration by exact qualified-name match.
func (idx *Index) Resolve(req definition.Request) (Resolved, error) {
	if req.IsMember() {
		return idx.resolveMember(req)
	}

	class := idx.classes[req.Name]
	function := idx.functions[req.Name]
	constant := idx.constants[req.Name]

	switch req.Kind {
	case definition.KindClass:
		if class != nil {
			return Resolved{Request: req, Symbol: class}, nil
		}
	case definition.KindFunction:
		if function != nil {
			return Resolved{Request: req, Symbol: function}, nil
		}
	case definition.KindConstant:
		if constant != nil {
			return Resolved{Request: req, Symbol: constant}, nil
		}
	default:
		if class != nil && function != nil {
			return Resolved{}, errors.WithHintf(
				errors.Wrapf(errors.ErrAmbiguousSymbol, "%s names both a class (%s:%d) and a function (%s:%d)",
					describe(req), class.File, class.Line, function.File, function.Line),
				"prefix the entry with class: or function:, e.g. function:%s", req.Name,
			)
		}
		switch {
		case class != nil:
			return Resolved{Request: req, Symbol: class}, nil
		case function != nil:
			return Resolved{Request: req, Symbol: function}, nil
		case constant != nil:
			return Resolved{Request: req, Symbol: constant}, nil
		}
	}

	return Resolved{}, missing(req)
}

func (idx *Index) resolveMember(req definition.Request) (Resolved, error) {
	className, member := req.Split()
	class := idx.classes[className]
	if class == nil {
		return Resolved{}, missing(req)
	}

	if req.Kind != definition.KindConstant {
		if m := class.Member(member, parsers.KindMethod); m != nil {
			return Resolved{Request: req, Symbol: m, Owner: class}, nil
		}
	}
	for _, kind := range []parsers.SymbolKind{parsers.KindClassConstant, parsers.KindEnumCase} {
		if m := class.Member(member, kind); m != nil {
			return Resolved{Request: req, Symbol: m, Owner: class}, nil
		}
	}
	return Resolved{}, missing(req)
}

func missing(req definition.Request) error {
	return errors.WithHint(
		errors.Wrapf(errors.ErrMissingSymbol, "%s is not declared in the source tree", describe(req)),
		"check the spelling and case of the name, or run `stubgen list` to see declared symbols",
	)
}

func describe(req definition.Request) string {
	if req.Line > 0 {
		return fmt.Sprintf("%s (definition line %d)", req, req.Line)
	}
	return req.String()
}

// Symbols returns every indexed top-level declaration and class member,
// sorted by qualified name.
func (idx *Index) Symbols() []*parsers.Signature {
	var all []*parsers.Signature
	for _, table := range []map[string]*parsers.Signature{idx.classes, idx.functions, idx.constants} {
		for _, sig := range table {
			all = append(all, sig)
			all = append(all, sig.Members...)
		}
	}
	sort.Slice(all, func(i, j int) bool {
		ni, nj := all[i].QualifiedName(), all[j].QualifiedName()
		if ni != nj {
			return ni < nj
		}
		return all[i].Kind < all[j].Kind
	})
	return all
}
