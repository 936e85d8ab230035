package definition

import (
	"bufio"
	"bytes"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/mvp-joe/stubgen/internal/errors"
)

// yamlDocument is the mapping form of a YAML definition file.
type yamlDocument struct {
	Library  string    `yaml:"library"`
	Version  string    `yaml:"version"`
	Homepage string    `yaml:"homepage"`
	Symbols  yaml.Node `yaml:"symbols"`
}

// Load reads a definition file. Files ending in .yml or .yaml are parsed as
// YAML (a bare sequence of names, or a mapping with a "symbols" list);
// anything else is read as one symbol per line with # comments.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(errors.Mark(err, errors.ErrUnreadableInput), "failed to read definition file")
	}

	var file *File
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yml", ".yaml":
		file, err = parseYAML(data)
	default:
		file, err = parseList(data)
	}
	if err != nil {
		return nil, errors.Wrapf(errors.Mark(err, errors.ErrUnreadableInput), "definition file %s", path)
	}
	file.Path = path

	if len(file.Requests) == 0 {
		return nil, errors.WithHint(
			errors.Wrapf(errors.ErrUnreadableInput, "definition file %s lists no symbols", path),
			"add one fully qualified symbol name per entry, e.g. Akismet::get_api_key",
		)
	}

	if err := checkDuplicates(file.Requests); err != nil {
		return nil, errors.Wrapf(errors.Mark(err, errors.ErrUnreadableInput), "definition file %s", path)
	}

	return file, nil
}

// parseList parses the line-oriented format.
func parseList(data []byte) (*File, error) {
	file := &File{}
	scanner := bufio.NewScanner(bytes.NewReader(data))
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if i := strings.Index(line, "#"); i >= 0 {
			line = line[:i]
		}
		if strings.TrimSpace(line) == "" {
			continue
		}

		req, err := ParseRequest(line)
		if err != nil {
			return nil, errors.Wrapf(err, "line %d", lineNo)
		}
		req.Line = lineNo
		file.Requests = append(file.Requests, req)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return file, nil
}

// parseYAML parses both YAML forms, keeping line numbers for every entry.
func parseYAML(data []byte) (*File, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, errors.Wrap(err, "invalid YAML")
	}
	if root.Kind != yaml.DocumentNode || len(root.Content) == 0 {
		return &File{}, nil
	}

	doc := root.Content[0]
	switch doc.Kind {
	case yaml.SequenceNode:
		requests, err := parseYAMLSymbols(doc.Content)
		if err != nil {
			return nil, err
		}
		return &File{Requests: requests}, nil

	case yaml.MappingNode:
		var parsed yamlDocument
		if err := doc.Decode(&parsed); err != nil {
			return nil, errors.Wrap(err, "invalid definition document")
		}
		if parsed.Symbols.Kind != 0 && parsed.Symbols.Kind != yaml.SequenceNode {
			return nil, errors.Newf("line %d: symbols must be a list", parsed.Symbols.Line)
		}
		requests, err := parseYAMLSymbols(parsed.Symbols.Content)
		if err != nil {
			return nil, err
		}
		return &File{
			Library:  parsed.Library,
			Version:  parsed.Version,
			Homepage: parsed.Homepage,
			Requests: requests,
		}, nil

	default:
		return nil, errors.Newf("line %d: expected a list of symbols or a mapping with a symbols key", doc.Line)
	}
}

func parseYAMLSymbols(nodes []*yaml.Node) ([]Request, error) {
	requests := make([]Request, 0, len(nodes))
	for _, n := range nodes {
		if n.Kind != yaml.ScalarNode {
			return nil, errors.Newf("line %d: symbol entries must be strings", n.Line)
		}
		req, err := ParseRequest(n.Value)
		if err != nil {
			return nil, errors.Wrapf(err, "line %d", n.Line)
		}
		req.Line = n.Line
		requests = append(requests, req)
	}
	return requests, nil
}

func checkDuplicates(requests []Request) error {
	seen := make(map[string]int, len(requests))
	for _, req := range requests {
		key := req.String()
		if first, ok := seen[key]; ok {
			return errors.Newf("line %d: %s is already listed on line %d", req.Line, key, first)
		}
		seen[key] = req.Line
	}
	return nil
}
