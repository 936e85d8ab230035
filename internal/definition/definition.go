package definition

import (
	"strings"

	"github.com/mvp-joe/stubgen/internal/errors"
)

// Kind restricts which declaration a request may resolve to.
type Kind string

const (
	KindAny      Kind = ""
	KindClass    Kind = "class"
	KindFunction Kind = "function"
	KindConstant Kind = "const"
)

// Request names one symbol a generation run must emit.
type Request struct {
	// Name is the fully qualified name without a leading backslash,
	// e.g. "Akismet::check_key_status" or "akismet_http_post".
	Name string
	// Kind is an optional hint taken from a "kind:" prefix.
	Kind Kind
	// Line is the 1-based position in the definition file, 0 if unknown.
	Line int
}

// IsMember reports whether the request targets a class member (Class::member).
func (r Request) IsMember() bool {
	return strings.Contains(r.Name, "::")
}

// Split returns the class and member parts of a member request.
func (r Request) Split() (class, member string) {
	i := strings.Index(r.Name, "::")
	if i < 0 {
		return r.Name, ""
	}
	return r.Name[:i], r.Name[i+2:]
}

func (r Request) String() string {
	if r.Kind != KindAny {
		return string(r.Kind) + ":" + r.Name
	}
	return r.Name
}

// File is a loaded definition file.
type File struct {
	Path     string
	Library  string
	Version  string
	Homepage string
	Requests []Request
}

// ParseRequest parses one definition entry: "name", "Class::member", or a
// kind-prefixed "function:name", "class:Name", "const:NAME".
func ParseRequest(raw string) (Request, error) {
	entry := strings.TrimSpace(raw)
	if entry == "" {
		return Request{}, errors.New("empty symbol name")
	}

	var req Request
	if i := strings.Index(entry, ":"); i > 0 && !strings.HasPrefix(entry[i:], "::") {
		prefix := strings.ToLower(strings.TrimSpace(entry[:i]))
		switch prefix {
		case "class", "interface", "trait":
			req.Kind = KindClass
		case "function", "func":
			req.Kind = KindFunction
		case "const", "constant":
			req.Kind = KindConstant
		default:
			return Request{}, errors.Newf("unknown symbol kind %q in %q", prefix, entry)
		}
		entry = strings.TrimSpace(entry[i+1:])
	}

	entry = strings.TrimPrefix(entry, `\`)
	if entry == "" || strings.ContainsAny(entry, " \t()$") {
		return Request{}, errors.Newf("malformed symbol name %q", raw)
	}

	if strings.Contains(entry, "::") {
		class, member, _ := strings.Cut(entry, "::")
		if class == "" || member == "" || strings.Contains(member, "::") {
			return Request{}, errors.Newf("malformed member name %q", raw)
		}
		if req.Kind == KindFunction || req.Kind == KindClass {
			return Request{}, errors.Newf("kind %q cannot name a class member: %q", req.Kind, raw)
		}
	}

	req.Name = entry
	return req, nil
}
