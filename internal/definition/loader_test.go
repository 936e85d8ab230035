package definition

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mvp-joe/stubgen/internal/errors"
)

// Test Plan for definition loading:
// - Plain list: one symbol per line, comments and blank lines skipped, line numbers kept
// - YAML sequence form and YAML mapping form (with library metadata)
// - Kind prefixes and leading backslashes are normalized
// - Order of requests equals file order
// - Missing file, empty list, malformed entry, duplicate entry → ErrUnreadableInput

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func names(reqs []Request) []string {
	out := make([]string, len(reqs))
	for i, r := range reqs {
		out[i] = r.String()
	}
	return out
}

func TestLoad_PlainList(t *testing.T) {
	t.Parallel()

	path := writeFile(t, "akismet.txt", `# Akismet public surface
Akismet::get_api_key
Akismet::check_key_status   # trailing comment

\akismet_http_post
`)

	file, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, path, file.Path)
	assert.Equal(t, []string{"Akismet::get_api_key", "Akismet::check_key_status", "akismet_http_post"}, names(file.Requests))
	assert.Equal(t, 2, file.Requests[0].Line)
	assert.Equal(t, 3, file.Requests[1].Line)
	assert.Equal(t, 5, file.Requests[2].Line)
	assert.True(t, file.Requests[1].IsMember())
	assert.False(t, file.Requests[2].IsMember())
}

func TestLoad_YAMLSequence(t *testing.T) {
	t.Parallel()

	path := writeFile(t, "defs.yaml", `- akismet_http_post
- Akismet::get_api_key
`)

	file, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"akismet_http_post", "Akismet::get_api_key"}, names(file.Requests))
	assert.Equal(t, 1, file.Requests[0].Line)
	assert.Equal(t, 2, file.Requests[1].Line)
}

func TestLoad_YAMLMapping(t *testing.T) {
	t.Parallel()

	path := writeFile(t, "gutenberg.yml", `library: Gutenberg
version: 17.0
homepage: https://wordpress.org/plugins/gutenberg/
symbols:
  - gutenberg_override_script
  - class:WP_Block_Parser
  - const:GUTENBERG_VERSION
`)

	file, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "Gutenberg", file.Library)
	assert.Equal(t, "17.0", file.Version)
	assert.Equal(t, "https://wordpress.org/plugins/gutenberg/", file.Homepage)
	require.Len(t, file.Requests, 3)
	assert.Equal(t, KindAny, file.Requests[0].Kind)
	assert.Equal(t, KindClass, file.Requests[1].Kind)
	assert.Equal(t, "WP_Block_Parser", file.Requests[1].Name)
	assert.Equal(t, KindConstant, file.Requests[2].Kind)
	assert.Equal(t, 7, file.Requests[2].Line)
}

func TestLoad_Failures(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		file    string
		content string
		want    string
	}{
		{name: "empty list", file: "empty.txt", content: "# nothing\n\n", want: "lists no symbols"},
		{name: "duplicate", file: "dup.txt", content: "foo\nbar\nfoo\n", want: "already listed on line 1"},
		{name: "malformed", file: "bad.txt", content: "foo($x)\n", want: "malformed symbol name"},
		{name: "unknown kind", file: "kind.txt", content: "enum:Foo\n", want: "unknown symbol kind"},
		{name: "bad yaml", file: "bad.yaml", content: "symbols: [unterminated\n", want: "invalid YAML"},
		{name: "yaml non-string entry", file: "nested.yaml", content: "- {a: b}\n", want: "must be strings"},
		{name: "yaml scalar document", file: "scalar.yaml", content: "just-a-string\n", want: "expected a list"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := Load(writeFile(t, tt.file, tt.content))
			require.Error(t, err)
			assert.True(t, errors.Is(err, errors.ErrUnreadableInput))
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	t.Parallel()

	_, err := Load(filepath.Join(t.TempDir(), "missing.txt"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrUnreadableInput))
}

func TestParseRequest(t *testing.T) {
	t.Parallel()

	tests := []struct {
		raw      string
		wantName string
		wantKind Kind
		wantErr  bool
	}{
		{raw: "akismet_http_post", wantName: "akismet_http_post"},
		{raw: `\Akismet::get_api_key`, wantName: "Akismet::get_api_key"},
		{raw: `Foo\Bar::baz`, wantName: `Foo\Bar::baz`},
		{raw: "function: akismet_http_post", wantName: "akismet_http_post", wantKind: KindFunction},
		{raw: "interface:Countable", wantName: "Countable", wantKind: KindClass},
		{raw: "constant:AKISMET_VERSION", wantName: "AKISMET_VERSION", wantKind: KindConstant},
		{raw: "const:Akismet::API_HOST", wantName: "Akismet::API_HOST", wantKind: KindConstant},
		{raw: "function:Akismet::get_api_key", wantErr: true},
		{raw: "Akismet::", wantErr: true},
		{raw: "::foo", wantErr: true},
		{raw: "A::b::c", wantErr: true},
		{raw: "   ", wantErr: true},
	}

	for _, tt := range tests {
		req, err := ParseRequest(tt.raw)
		if tt.wantErr {
			assert.Error(t, err, tt.raw)
			continue
		}
		require.NoError(t, err, tt.raw)
		assert.Equal(t, tt.wantName, req.Name, tt.raw)
		assert.Equal(t, tt.wantKind, req.Kind, tt.raw)
	}
}

func TestRequest_Split(t *testing.T) {
	t.Parallel()

	class, member := Request{Name: `NS\Akismet::check_key_status`}.Split()
	assert.Equal(t, `NS\Akismet`, class)
	assert.Equal(t, "check_key_status", member)

	class, member = Request{Name: "akismet_http_post"}.Split()
	assert.Equal(t, "akismet_http_post", class)
	assert.Equal(t, "", member)
}
