package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mvp-joe/stubgen/internal/config"
	"github.com/mvp-joe/stubgen/internal/errors"
	"github.com/mvp-joe/stubgen/internal/generator"
)

// Test Plan for the generate command:
// - Flags generate the Akismet stubs matching the golden file
// - Progress output reports written and unchanged runs; --quiet prints nothing
// - A --config file supplies every path and metadata field
// - Flags override configuration values
// - --check fails on stale output without writing; --check with --watch is rejected
// - A missing symbol fails with ErrMissingSymbol and no output file
// - Watch mode regenerates after the definition file changes
//
// These tests drive the shared rootCmd and its package-level flag variables,
// so none of them run in parallel.

const (
	akismetSource = "../../testdata/php/akismet"
	akismetDef    = "../../testdata/php/akismet.txt"
	akismetGolden = "../../testdata/php/akismet-stubs.php"
)

func resetFlags() {
	genFlags = generateFlags{}
	listSource = ""
	listKind = ""
	cfgFile = ""
	verbosity = 0
	logJSON = false
}

// executeCommand runs rootCmd with args and returns everything it printed.
func executeCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags()
	t.Cleanup(resetFlags)

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})

	err := rootCmd.Execute()
	return out.String(), err
}

func readGolden(t *testing.T) string {
	t.Helper()
	data, err := os.ReadFile(akismetGolden)
	require.NoError(t, err)
	return string(data)
}

func TestGenerateCommand_Akismet(t *testing.T) {
	output := filepath.Join(t.TempDir(), "akismet-stubs.php")

	out, err := executeCommand(t, "generate",
		"--source", akismetSource,
		"--definition", akismetDef,
		"--output", output,
		"--quiet",
	)
	require.NoError(t, err)
	assert.Empty(t, out)

	data, err := os.ReadFile(output)
	require.NoError(t, err)
	assert.Equal(t, readGolden(t), string(data))
}

func TestGenerateCommand_ProgressOutput(t *testing.T) {
	output := filepath.Join(t.TempDir(), "akismet-stubs.php")
	args := []string{"generate", "--source", akismetSource, "--definition", akismetDef, "--output", output}

	out, err := executeCommand(t, args...)
	require.NoError(t, err)
	assert.Contains(t, out, "Parsing 2 source files")
	assert.Contains(t, out, "✓ Stubs written: "+output)
	assert.Contains(t, out, "Library: Akismet Anti-spam: Spam Protection 5.3")

	out, err = executeCommand(t, args...)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ Stubs unchanged: "+output)
}

func TestGenerateCommand_ConfigFile(t *testing.T) {
	dir := t.TempDir()
	source, err := filepath.Abs(akismetSource)
	require.NoError(t, err)
	def, err := filepath.Abs(akismetDef)
	require.NoError(t, err)
	output := filepath.Join(dir, "stubs", "akismet-stubs.php")

	cfgPath := filepath.Join(dir, "stubgen.yml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(`library:
  name: Akismet
  version: "5.3.1"
source:
  dir: `+source+`
definition: `+def+`
output: `+output+`
generator: composer stubs
`), 0644))

	_, err = executeCommand(t, "generate", "--config", cfgPath, "--quiet")
	require.NoError(t, err)

	data, err := os.ReadFile(output)
	require.NoError(t, err)
	assert.Contains(t, string(data), " * Generated stubs for Akismet 5.3.1.\n")
	assert.Contains(t, string(data), "Regenerate with `composer stubs`.")
	assert.Contains(t, string(data), "function akismet_http_post($request, $host, $path, $port = 80, $ip = null)")
}

func TestGenerateFlags_Options(t *testing.T) {
	t.Parallel()

	cfg := config.Default()
	cfg.Source.Dir = "vendor/akismet"
	cfg.Definition = "stubs/akismet.txt"
	cfg.Output = "stubs/akismet-stubs.php"
	cfg.Library.Name = "Akismet"
	cfg.Library.Version = "5.3"

	opts := generateFlags{}.options(cfg)
	assert.Equal(t, generator.Options{
		SourceDir:      "vendor/akismet",
		Include:        cfg.Source.Include,
		Ignore:         cfg.Source.Ignore,
		DefinitionPath: "stubs/akismet.txt",
		OutputPath:     "stubs/akismet-stubs.php",
		Library:        "Akismet",
		Version:        "5.3",
		GeneratorRef:   "stubgen generate",
	}, opts)

	opts = generateFlags{
		source:   "wp-content/plugins/akismet",
		output:   "build/akismet.php",
		version:  "5.3.1",
		homepage: "https://akismet.com/",
		check:    true,
	}.options(cfg)
	assert.Equal(t, "wp-content/plugins/akismet", opts.SourceDir)
	assert.Equal(t, "stubs/akismet.txt", opts.DefinitionPath, "unset flags keep config values")
	assert.Equal(t, "build/akismet.php", opts.OutputPath)
	assert.Equal(t, "Akismet", opts.Library)
	assert.Equal(t, "5.3.1", opts.Version)
	assert.Equal(t, "https://akismet.com/", opts.Homepage)
	assert.True(t, opts.Check)
}

func TestGenerateCommand_Check(t *testing.T) {
	output := filepath.Join(t.TempDir(), "akismet-stubs.php")
	args := []string{"generate", "--source", akismetSource, "--definition", akismetDef, "--output", output, "--quiet"}

	_, err := executeCommand(t, append(args, "--check")...)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrStaleOutput))
	assert.NoFileExists(t, output)

	_, err = executeCommand(t, args...)
	require.NoError(t, err)

	_, err = executeCommand(t, append(args, "--check")...)
	assert.NoError(t, err, "freshly generated stubs pass the check")
}

func TestGenerateCommand_CheckWithWatch(t *testing.T) {
	_, err := executeCommand(t, "generate", "--check", "--watch")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot be combined")
}

func TestGenerateCommand_MissingSymbol(t *testing.T) {
	dir := t.TempDir()
	def := filepath.Join(dir, "akismet.txt")
	require.NoError(t, os.WriteFile(def, []byte("Akismet::get_api_key\nAkismet::verify_key\n"), 0644))
	output := filepath.Join(dir, "akismet-stubs.php")

	_, err := executeCommand(t, "generate", "--source", akismetSource, "--definition", def, "--output", output, "--quiet")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrMissingSymbol))
	assert.Contains(t, err.Error(), "Akismet::verify_key")
	assert.NoFileExists(t, output)

	var buf bytes.Buffer
	printError(&buf, err)
	assert.Contains(t, buf.String(), "Error: Akismet::verify_key (definition line 2)")
	assert.Contains(t, buf.String(), "Hint: check the spelling and case of the name")
}

func TestRunWatch_RegeneratesOnDefinitionChange(t *testing.T) {
	resetFlags()
	t.Cleanup(resetFlags)

	dir := t.TempDir()
	def := filepath.Join(dir, "akismet.txt")
	require.NoError(t, os.WriteFile(def, []byte("akismet_http_post\n"), 0644))
	output := filepath.Join(dir, "akismet-stubs.php")

	cfg := config.Default()
	opts := generator.Options{
		SourceDir:      akismetSource,
		Include:        cfg.Source.Include,
		Ignore:         cfg.Source.Ignore,
		DefinitionPath: def,
		OutputPath:     output,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var out, errOut bytes.Buffer
	done := make(chan error, 1)
	go func() {
		done <- runWatch(ctx, &out, &errOut, cfg, opts, &generator.NoOpProgressReporter{})
	}()

	readOutput := func() string {
		data, _ := os.ReadFile(output)
		return string(data)
	}
	require.Eventually(t, func() bool {
		return bytes.Contains([]byte(readOutput()), []byte("function akismet_http_post("))
	}, 5*time.Second, 50*time.Millisecond, "initial run writes the stubs")
	assert.NotContains(t, readOutput(), "class Akismet")

	// Let the watcher register before editing
	time.Sleep(200 * time.Millisecond)
	require.NoError(t, os.WriteFile(def, []byte("akismet_http_post\nAkismet::get_api_key\n"), 0644))

	require.Eventually(t, func() bool {
		return bytes.Contains([]byte(readOutput()), []byte("public static function get_api_key()"))
	}, 5*time.Second, 50*time.Millisecond, "definition change triggers regeneration")

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not stop after cancellation")
	}
	assert.Empty(t, errOut.String())
}
