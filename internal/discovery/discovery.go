package discovery

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gobwas/glob"

	"github.com/mvp-joe/stubgen/internal/errors"
)

// DefaultInclude matches PHP sources anywhere in the tree.
var DefaultInclude = []string{"**/*.php"}

// DefaultIgnore skips dependency and test trees that never declare the
// library's own public surface.
var DefaultIgnore = []string{
	"vendor/**",
	"node_modules/**",
	".git/**",
	"tests/**",
	"test/**",
}

// compiledPattern holds both the pattern string and compiled glob
type compiledPattern struct {
	pattern string
	glob    glob.Glob
}

// FileDiscovery finds the PHP files of a library source tree.
type FileDiscovery struct {
	rootDir         string
	includePatterns []compiledPattern
	ignorePatterns  []compiledPattern
}

// NewFileDiscovery creates a new file discovery instance. Empty pattern lists
// fall back to DefaultInclude / DefaultIgnore.
func NewFileDiscovery(rootDir string, includePatterns, ignorePatterns []string) (*FileDiscovery, error) {
	if len(includePatterns) == 0 {
		includePatterns = DefaultInclude
	}
	if ignorePatterns == nil {
		ignorePatterns = DefaultIgnore
	}

	fd := &FileDiscovery{
		rootDir: rootDir,
	}

	var err error
	if fd.includePatterns, err = compilePatterns(includePatterns); err != nil {
		return nil, err
	}
	if fd.ignorePatterns, err = compilePatterns(ignorePatterns); err != nil {
		return nil, err
	}

	return fd, nil
}

// CompilePatterns validates glob patterns without building a FileDiscovery.
func CompilePatterns(patterns []string) error {
	_, err := compilePatterns(patterns)
	return err
}

func compilePatterns(patterns []string) ([]compiledPattern, error) {
	compiled := make([]compiledPattern, 0, len(patterns))
	for _, pattern := range patterns {
		g, err := glob.Compile(pattern, '/')
		if err != nil {
			return nil, errors.Wrapf(err, "invalid glob pattern %q", pattern)
		}
		compiled = append(compiled, compiledPattern{pattern: pattern, glob: g})
	}
	return compiled, nil
}

// DiscoverFiles walks the source tree and returns matching files in lexical
// order, so symbol indexing is deterministic across runs.
func (fd *FileDiscovery) DiscoverFiles() ([]string, error) {
	info, err := os.Stat(fd.rootDir)
	if err != nil {
		return nil, errors.Wrapf(errors.Mark(err, errors.ErrUnreadableInput), "source tree %s", fd.rootDir)
	}
	if !info.IsDir() {
		return nil, errors.Wrapf(errors.ErrUnreadableInput, "source tree %s is not a directory", fd.rootDir)
	}

	files := []string{}
	err = filepath.Walk(fd.rootDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		// Get relative path for pattern matching
		relPath, err := filepath.Rel(fd.rootDir, path)
		if err != nil {
			return err
		}
		relPath = filepath.ToSlash(relPath)

		if info.IsDir() {
			if relPath != "." && fd.shouldIgnore(relPath) {
				return filepath.SkipDir
			}
			return nil
		}

		if fd.shouldIgnore(relPath) {
			return nil
		}

		if fd.matchesAnyPattern(relPath, fd.includePatterns) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrapf(errors.Mark(err, errors.ErrUnreadableInput), "failed to walk source tree %s", fd.rootDir)
	}

	sort.Strings(files)
	return files, nil
}

// shouldIgnore checks if a path matches any ignore pattern.
func (fd *FileDiscovery) shouldIgnore(relPath string) bool {
	if fd.matchesAnyPattern(relPath, fd.ignorePatterns) {
		return true
	}

	// "vendor" should match pattern "vendor/**"
	pathWithSuffix := relPath + "/**"
	return fd.matchesAnyPattern(pathWithSuffix, fd.ignorePatterns)
}

// matchesAnyPattern checks if a path matches any of the given patterns.
func (fd *FileDiscovery) matchesAnyPattern(path string, patterns []compiledPattern) bool {
	for _, cp := range patterns {
		if cp.glob.Match(path) {
			return true
		}
	}

	// Files in the root (no slash) should also match "**/" patterns, so
	// "**/*.php" matches both "akismet.php" and "class/akismet.php".
	if !strings.Contains(path, "/") {
		for _, cp := range patterns {
			if strings.HasPrefix(cp.pattern, "**/") {
				simplified := strings.TrimPrefix(cp.pattern, "**/")
				if simplifiedGlob, err := glob.Compile(simplified, '/'); err == nil {
					if simplifiedGlob.Match(path) {
						return true
					}
				}
			}
		}
	}

	return false
}
