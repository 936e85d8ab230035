// Package config provides configuration loading for stubgen.
//
// Project configuration lives in .stubgen/config.yml (or config.yaml) under
// the directory stubgen runs from. It names the library being stubbed, where
// its source tree is, which definition file lists the public surface, and
// where the stub file is written.
//
// Configuration Hierarchy (highest to lowest priority):
//  1. Command-line flags (applied by the cli package)
//  2. Environment variables (STUBGEN_*)
//  3. Config file (.stubgen/config.yml)
//  4. Built-in defaults
//
// Environment Variable Convention:
//   - Prefix: STUBGEN_
//   - Nested fields: Use underscores (STUBGEN_LIBRARY_VERSION, STUBGEN_SOURCE_DIR)
//   - Lists are comma separated (STUBGEN_SOURCE_IGNORE="vendor/**,tests/**")
//
// Example .stubgen/config.yml:
//
//	library:
//	  name: Akismet
//	  homepage: https://akismet.com/
//	source:
//	  dir: vendor/wpackagist-plugin/akismet
//	definition: stubs/akismet.txt
//	output: stubs/akismet-stubs.php
package config

import (
	"github.com/mvp-joe/stubgen/internal/discovery"
	"github.com/mvp-joe/stubgen/internal/stubs"
)

// Config represents the complete stubgen configuration.
type Config struct {
	Library    LibraryConfig `yaml:"library" mapstructure:"library"`
	Source     SourceConfig  `yaml:"source" mapstructure:"source"`
	Definition string        `yaml:"definition" mapstructure:"definition"` // definition file listing symbols to expose
	Output     string        `yaml:"output" mapstructure:"output"`         // stub file to write
	Generator  string        `yaml:"generator" mapstructure:"generator"`   // regeneration command named in the stub header
}

// LibraryConfig describes the library the stubs are generated for. Empty
// fields are filled from the definition file or the plugin header.
type LibraryConfig struct {
	Name     string `yaml:"name" mapstructure:"name"`
	Version  string `yaml:"version" mapstructure:"version"`
	Homepage string `yaml:"homepage" mapstructure:"homepage"`
}

// SourceConfig defines which files of the library source tree are scanned.
type SourceConfig struct {
	Dir     string   `yaml:"dir" mapstructure:"dir"`         // library source tree root
	Include []string `yaml:"include" mapstructure:"include"` // glob patterns for PHP files
	Ignore  []string `yaml:"ignore" mapstructure:"ignore"`   // glob patterns to skip
}

// Default returns a configuration with sensible defaults.
func Default() *Config {
	return &Config{
		Source: SourceConfig{
			Dir:     ".",
			Include: append([]string(nil), discovery.DefaultInclude...),
			Ignore:  append([]string(nil), discovery.DefaultIgnore...),
		},
		Generator: stubs.DefaultGenerator,
	}
}

// GetSourceExtensions extracts unique file extensions from the include patterns.
// Returns extensions with leading dot (e.g., []string{".php", ".inc"}).
func (c *Config) GetSourceExtensions() []string {
	seen := make(map[string]bool)
	var extensions []string
	for _, pattern := range c.Source.Include {
		if ext := extractExtension(pattern); ext != "" && !seen[ext] {
			seen[ext] = true
			extensions = append(extensions, ext)
		}
	}
	return extensions
}

// extractExtension extracts the file extension from a glob pattern.
// Returns empty string if pattern doesn't match a simple extension pattern.
// Examples: "**/*.php" -> ".php", "*.inc" -> ".inc", "gutenberg.php" -> ""
func extractExtension(pattern string) string {
	for i := len(pattern) - 1; i >= 1; i-- {
		if pattern[i] == '.' && pattern[i-1] == '*' {
			return pattern[i:]
		}
	}
	return ""
}
