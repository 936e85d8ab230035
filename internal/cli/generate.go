package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mvp-joe/stubgen/internal/config"
	"github.com/mvp-joe/stubgen/internal/errors"
	"github.com/mvp-joe/stubgen/internal/generator"
	"github.com/mvp-joe/stubgen/internal/index"
	"github.com/mvp-joe/stubgen/internal/logger"
	"github.com/mvp-joe/stubgen/internal/watcher"
)

// generateFlags holds command-line overrides for the configured run.
type generateFlags struct {
	source     string
	definition string
	output     string
	library    string
	version    string
	homepage   string
	check      bool
	watch      bool
	quiet      bool
}

var genFlags generateFlags

// generateCmd represents the generate command
var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate the stub file for a library",
	Long: `Generate parses every PHP file of the library source tree, looks up each
symbol listed in the definition file and writes their signatures to the
output file. Bodies are emptied; doc comments, types and default values are
kept verbatim.

Generation is all-or-nothing: if any listed symbol cannot be found, or a
source file does not parse, nothing is written and the previous stub file
stays in place.

Definition files list one symbol per line ('#' starts a comment):
  Akismet                      whole class
  Akismet::check_key_status    one method or class constant
  akismet_http_post            function or constant
  function:Widget              kind prefix (class:, function:, const:)

Examples:
  # Generate using .stubgen/config.yml
  stubgen generate

  # Generate without a config file
  stubgen generate --source vendor/akismet --definition stubs/akismet.txt \
    --output stubs/akismet-stubs.php

  # Fail in CI when the committed stubs are out of date
  stubgen generate --check

  # Regenerate whenever the plugin source or definition file changes
  stubgen generate --watch
`,
	Args: cobra.NoArgs,
	RunE: runGenerate,
}

func init() {
	rootCmd.AddCommand(generateCmd)
	f := generateCmd.Flags()
	f.StringVarP(&genFlags.source, "source", "s", "", "library source tree")
	f.StringVarP(&genFlags.definition, "definition", "d", "", "definition file listing the symbols to emit")
	f.StringVarP(&genFlags.output, "output", "o", "", "stub file to write")
	f.StringVar(&genFlags.library, "library", "", "library name for the stub header")
	f.StringVar(&genFlags.version, "lib-version", "", "library version for the stub header")
	f.StringVar(&genFlags.homepage, "homepage", "", "library homepage for the stub header")
	f.BoolVar(&genFlags.check, "check", false, "fail if the stub file is out of date instead of writing it")
	f.BoolVarP(&genFlags.watch, "watch", "w", false, "regenerate when the source tree or definition file changes")
	f.BoolVarP(&genFlags.quiet, "quiet", "q", false, "disable progress bars and non-error output")
}

// options merges flags over the loaded configuration.
func (f generateFlags) options(cfg *config.Config) generator.Options {
	return generator.Options{
		SourceDir:      firstSet(f.source, cfg.Source.Dir),
		Include:        cfg.Source.Include,
		Ignore:         cfg.Source.Ignore,
		DefinitionPath: firstSet(f.definition, cfg.Definition),
		OutputPath:     firstSet(f.output, cfg.Output),
		Library:        firstSet(f.library, cfg.Library.Name),
		Version:        firstSet(f.version, cfg.Library.Version),
		Homepage:       firstSet(f.homepage, cfg.Library.Homepage),
		GeneratorRef:   cfg.Generator,
		Check:          f.check,
	}
}

func runGenerate(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if genFlags.check && genFlags.watch {
		return errors.New("--check and --watch cannot be combined")
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	opts := genFlags.options(cfg)

	log := logger.ComponentLogger("cli")
	if opts.Version != "" {
		if warn := config.VersionWarning(opts.Version); warn != nil {
			log.Warnw("library version is not semver", logger.FieldError, warn)
		}
	}

	progress := NewCLIProgressReporter(cmd.OutOrStdout(), genFlags.quiet)

	if !genFlags.watch {
		_, err := generator.New(progress, nil).Run(ctx, opts)
		return err
	}
	return runWatch(ctx, cmd.OutOrStdout(), cmd.ErrOrStderr(), cfg, opts, progress)
}

// runWatch generates once, then regenerates on every change until ctx is
// cancelled. A failed run is reported and watching continues.
func runWatch(ctx context.Context, out, errOut io.Writer, cfg *config.Config, opts generator.Options, progress generator.ProgressReporter) error {
	// The watcher reports absolute paths; cache keys must match them.
	if abs, err := filepath.Abs(opts.SourceDir); err == nil {
		opts.SourceDir = abs
	}

	cache, err := index.NewParseCache(index.DefaultCacheCapacity)
	if err != nil {
		return err
	}
	defer cache.Close()

	regen := &regenerator{
		gen:   generator.New(progress, cache),
		cache: cache,
		opts:  opts,
	}
	if err := regen.Regenerate(ctx, nil); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		printError(errOut, err)
	}

	dirs, files := opts.WatchPaths()
	fw, err := watcher.NewFileWatcher(watcher.Targets{
		Dirs:       dirs,
		Extensions: cfg.GetSourceExtensions(),
		Files:      files,
		Exclude:    []string{opts.OutputPath},
	})
	if err != nil {
		return errors.Wrap(err, "failed to start file watcher")
	}

	fmt.Fprintln(out, "Watching for changes (Ctrl+C to stop)...")
	err = watcher.NewWatchCoordinator(fw, regen).Start(ctx)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// regenerator reruns the generator with a shared parse cache.
type regenerator struct {
	gen   *generator.Generator
	cache *index.ParseCache
	opts  generator.Options
}

func (r *regenerator) Regenerate(ctx context.Context, changed []string) error {
	r.cache.Invalidate(changed...)
	_, err := r.gen.Run(ctx, r.opts)
	return err
}

func firstSet(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
