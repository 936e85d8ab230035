package generator

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mvp-joe/stubgen/internal/definition"
	"github.com/mvp-joe/stubgen/internal/discovery"
	"github.com/mvp-joe/stubgen/internal/errors"
	"github.com/mvp-joe/stubgen/internal/index"
	"github.com/mvp-joe/stubgen/internal/logger"
	"github.com/mvp-joe/stubgen/internal/parsers"
	"github.com/mvp-joe/stubgen/internal/stubs"
)

// Options describe one (library, definition file) generation run.
type Options struct {
	SourceDir      string
	Include        []string
	Ignore         []string
	DefinitionPath string
	OutputPath     string

	// Library metadata. Empty fields fall back to the definition file, then
	// to the plugin header found in SourceDir.
	Library  string
	Version  string
	Homepage string

	// GeneratorRef is the regeneration command named in the stub header.
	GeneratorRef string

	// Check renders and compares against OutputPath without writing.
	Check bool
}

// Result summarizes a successful run.
type Result struct {
	OutputPath   string
	Header       stubs.Header
	FilesScanned int
	Symbols      int
	Bytes        int
	// Unchanged is true when the rendered stubs matched the existing file
	// and nothing was written.
	Unchanged bool
	Duration  time.Duration
}

// Generator runs the load → discover → index → resolve → render → write pipeline.
type Generator struct {
	parser   index.Parser
	cache    *index.ParseCache
	writer   *stubs.AtomicWriter
	progress ProgressReporter
	log      *zap.SugaredLogger
}

// New creates a generator. cache may be nil; a long-lived process (watch
// mode) passes one so unchanged files are not re-parsed between runs.
func New(progress ProgressReporter, cache *index.ParseCache) *Generator {
	if progress == nil {
		progress = &NoOpProgressReporter{}
	}
	return &Generator{
		parser:   parsers.NewPhpParser(),
		cache:    cache,
		writer:   stubs.NewAtomicWriter(),
		progress: progress,
		log:      logger.ComponentLogger("generator"),
	}
}

// Run executes one generation. Any failure aborts before the output file is
// touched, so a previous stub file survives a failed run.
func (g *Generator) Run(ctx context.Context, opts Options) (*Result, error) {
	start := time.Now()

	if err := opts.validate(); err != nil {
		return nil, err
	}

	def, err := definition.Load(opts.DefinitionPath)
	if err != nil {
		return nil, err
	}
	g.log.Debugw("definition loaded", logger.FieldPath, def.Path, logger.FieldCount, len(def.Requests))

	g.progress.OnDiscoveryStart()
	disc, err := discovery.NewFileDiscovery(opts.SourceDir, opts.Include, opts.Ignore)
	if err != nil {
		return nil, err
	}
	files, err := disc.DiscoverFiles()
	if err != nil {
		return nil, err
	}
	files = withoutPath(files, opts.OutputPath)
	g.progress.OnDiscoveryComplete(len(files))

	g.progress.OnFileProcessingStart(len(files))
	idx, err := index.Build(ctx, files, g.parser, g.cache, func(path string) {
		g.progress.OnFileProcessed(path)
	})
	if err != nil {
		return nil, err
	}

	decls, err := resolveAll(idx, def.Requests)
	if err != nil {
		return nil, err
	}

	header := resolveHeader(opts, def)
	out, err := stubs.Render(header, decls)
	if err != nil {
		return nil, err
	}

	result := &Result{
		OutputPath:   opts.OutputPath,
		Header:       header,
		FilesScanned: idx.Files(),
		Symbols:      stubs.Declarations(decls),
		Bytes:        len(out),
	}

	existing, readErr := os.ReadFile(opts.OutputPath)
	result.Unchanged = readErr == nil && bytes.Equal(existing, out)

	switch {
	case result.Unchanged:
		g.log.Debugw("stubs unchanged, skipping write", logger.FieldPath, opts.OutputPath)
	case opts.Check:
		return nil, errors.WithHintf(
			errors.Wrapf(errors.ErrStaleOutput, "%s does not match the generated stubs", opts.OutputPath),
			"run `%s` and commit the result", generatorRef(opts),
		)
	default:
		if err := g.writer.Write(opts.OutputPath, out); err != nil {
			return nil, err
		}
	}

	result.Duration = time.Since(start)
	g.log.Infow("stubs generated",
		logger.FieldPath, opts.OutputPath,
		logger.FieldCount, result.Symbols,
		logger.FieldBytes, result.Bytes,
		"files", result.FilesScanned,
		"unchanged", result.Unchanged,
		logger.FieldDurationMS, result.Duration.Milliseconds(),
	)
	g.progress.OnComplete(result)
	return result, nil
}

// WatchPaths returns the paths a watcher should observe for this run.
func (opts Options) WatchPaths() (dirs, files []string) {
	return []string{opts.SourceDir}, []string{opts.DefinitionPath}
}

func (opts Options) validate() error {
	var missing []string
	if opts.SourceDir == "" {
		missing = append(missing, "source directory")
	}
	if opts.DefinitionPath == "" {
		missing = append(missing, "definition file")
	}
	if opts.OutputPath == "" {
		missing = append(missing, "output path")
	}
	if len(missing) > 0 {
		return errors.WithHint(
			errors.Wrapf(errors.ErrUnreadableInput, "no %s configured", strings.Join(missing, ", ")),
			"pass --source, --definition and --output or set them in .stubgen/config.yml",
		)
	}
	return nil
}

// resolveAll resolves every request. All failures are reported together;
// the returned error matches the sentinel of each failure.
func resolveAll(idx *index.Index, requests []definition.Request) ([]index.Resolved, error) {
	decls := make([]index.Resolved, 0, len(requests))
	var failures []error
	for _, req := range requests {
		r, err := idx.Resolve(req)
		if err != nil {
			failures = append(failures, err)
			continue
		}
		decls = append(decls, r)
	}

	switch len(failures) {
	case 0:
		return decls, nil
	case 1:
		return nil, failures[0]
	}

	msgs := make([]string, len(failures))
	var hints []string
	for i, f := range failures {
		msgs[i] = f.Error()
		hints = append(hints, errors.GetAllHints(f)...)
	}

	var err error = &resolveErrors{
		msg:      fmt.Sprintf("%d of %d symbols could not be resolved", len(failures), len(requests)),
		failures: failures,
	}
	err = errors.WithDetail(errors.WithStack(err), strings.Join(msgs, "\n"))
	// repeated hints are folded by GetAllHints
	for _, h := range hints {
		err = errors.WithHint(err, h)
	}
	return nil, err
}

// resolveErrors groups the failures of one resolution pass. Its message is a
// summary; errors.Is looks through it into every failure.
type resolveErrors struct {
	msg      string
	failures []error
}

func (e *resolveErrors) Error() string { return e.msg }

func (e *resolveErrors) Unwrap() []error { return e.failures }

// resolveHeader picks library metadata: explicit options first, then the
// definition file, then the WordPress plugin header, then the directory name.
func resolveHeader(opts Options, def *definition.File) stubs.Header {
	h := stubs.Header{
		Library:   firstNonEmpty(opts.Library, def.Library),
		Version:   firstNonEmpty(opts.Version, def.Version),
		Homepage:  firstNonEmpty(opts.Homepage, def.Homepage),
		Generator: generatorRef(opts),
	}
	if h.Library == "" || h.Version == "" || h.Homepage == "" {
		if plugin, ok := discovery.ReadPluginHeader(opts.SourceDir); ok {
			h.Library = firstNonEmpty(h.Library, plugin.Name)
			h.Version = firstNonEmpty(h.Version, plugin.Version)
			h.Homepage = firstNonEmpty(h.Homepage, plugin.URI)
		}
	}
	if h.Library == "" {
		if abs, err := filepath.Abs(opts.SourceDir); err == nil {
			h.Library = filepath.Base(abs)
		}
	}
	return h
}

// withoutPath drops target from files so stubs written inside the source
// tree are never indexed as source.
func withoutPath(files []string, target string) []string {
	abs, err := filepath.Abs(target)
	if err != nil {
		return files
	}
	kept := files[:0]
	for _, f := range files {
		if fa, err := filepath.Abs(f); err == nil && fa == abs {
			continue
		}
		kept = append(kept, f)
	}
	return kept
}

func generatorRef(opts Options) string {
	return firstNonEmpty(opts.GeneratorRef, stubs.DefaultGenerator)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
