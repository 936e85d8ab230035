package config

import (
	"path/filepath"
	"strings"

	"github.com/Masterminds/semver/v3"

	"github.com/mvp-joe/stubgen/internal/discovery"
	"github.com/mvp-joe/stubgen/internal/errors"
)

var (
	// ErrInvalidPattern indicates a source glob pattern that does not compile
	ErrInvalidPattern = errors.New("invalid glob pattern")

	// ErrEmptyInclude indicates no include patterns are configured
	ErrEmptyInclude = errors.New("empty include patterns")

	// ErrEmptySourceDir indicates a missing source directory
	ErrEmptySourceDir = errors.New("empty source directory")

	// ErrOutputOverwritesInput indicates the output path points at an input file
	ErrOutputOverwritesInput = errors.New("output overwrites an input")

	// ErrNonSemverVersion indicates a library version that is not semver-like
	ErrNonSemverVersion = errors.New("library version is not semver-like")
)

// Validate checks that the configuration is valid and complete.
func Validate(cfg *Config) error {
	var errs []error

	if err := validateSource(&cfg.Source); err != nil {
		errs = append(errs, err)
	}

	if err := validatePaths(cfg); err != nil {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		return joinErrors(errs)
	}

	return nil
}

func validateSource(cfg *SourceConfig) error {
	var errs []error

	if strings.TrimSpace(cfg.Dir) == "" {
		errs = append(errs, errors.Wrap(ErrEmptySourceDir, "source.dir is required"))
	}

	if len(cfg.Include) == 0 {
		errs = append(errs, errors.Wrap(ErrEmptyInclude, "source.include needs at least one pattern"))
	}

	for _, pattern := range cfg.Include {
		if err := discovery.CompilePatterns([]string{pattern}); err != nil {
			errs = append(errs, errors.Wrapf(ErrInvalidPattern, "source.include %q", pattern))
		}
	}
	for _, pattern := range cfg.Ignore {
		if err := discovery.CompilePatterns([]string{pattern}); err != nil {
			errs = append(errs, errors.Wrapf(ErrInvalidPattern, "source.ignore %q", pattern))
		}
	}

	if len(errs) > 0 {
		return joinErrors(errs)
	}

	return nil
}

func validatePaths(cfg *Config) error {
	// Definition and output may be supplied by flags later; only check what is set
	if cfg.Output == "" {
		return nil
	}
	if cfg.Definition != "" && filepath.Clean(cfg.Output) == filepath.Clean(cfg.Definition) {
		return errors.Wrapf(ErrOutputOverwritesInput, "output %q is the definition file", cfg.Output)
	}
	return nil
}

// VersionWarning reports a library version that semver tooling cannot
// parse. WordPress versions such as "5.3" are accepted; the result is a
// warning for the caller to log, never a reason to abort.
func VersionWarning(version string) error {
	if version == "" {
		return nil
	}
	if _, err := semver.NewVersion(version); err != nil {
		return errors.Wrapf(ErrNonSemverVersion, "%q: %v", version, err)
	}
	return nil
}

// joinErrors combines multiple errors into a single error with clear formatting.
// The first error stays in the chain so errors.Is matches its sentinel.
func joinErrors(errs []error) error {
	if len(errs) == 0 {
		return nil
	}

	if len(errs) == 1 {
		return errs[0]
	}

	var msgs []string
	for _, err := range errs {
		msgs = append(msgs, err.Error())
	}

	return errors.WithDetail(
		errors.Wrapf(errs[0], "validation failed (%d problems)", len(errs)),
		"  - "+strings.Join(msgs, "\n  - "),
	)
}
