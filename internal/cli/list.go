package cli

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/mvp-joe/stubgen/internal/discovery"
	"github.com/mvp-joe/stubgen/internal/errors"
	"github.com/mvp-joe/stubgen/internal/index"
	"github.com/mvp-joe/stubgen/internal/parsers"
)

var (
	listSource string
	listKind   string
)

var listKinds = []parsers.SymbolKind{
	parsers.KindClass,
	parsers.KindInterface,
	parsers.KindTrait,
	parsers.KindEnum,
	parsers.KindMethod,
	parsers.KindFunction,
	parsers.KindConstant,
	parsers.KindClassConstant,
	parsers.KindEnumCase,
}

// listCmd represents the list command
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List every symbol the library source tree declares",
	Long: `List parses the library source tree and prints each declaration with the
name a definition file uses for it. Use it to find the exact spelling of a
class, method, function or constant before adding it to a definition file.

Examples:
  # List everything in the configured source tree
  stubgen list

  # List only the functions of a plugin
  stubgen list --source vendor/akismet --kind function
`,
	Args: cobra.NoArgs,
	RunE: runList,
}

func init() {
	rootCmd.AddCommand(listCmd)
	listCmd.Flags().StringVarP(&listSource, "source", "s", "", "library source tree")
	listCmd.Flags().StringVarP(&listKind, "kind", "k", "", "only list symbols of this kind ("+kindNames()+")")
}

func runList(cmd *cobra.Command, args []string) error {
	kind, err := parseKind(listKind)
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	sourceDir := firstSet(listSource, cfg.Source.Dir)

	disc, err := discovery.NewFileDiscovery(sourceDir, cfg.Source.Include, cfg.Source.Ignore)
	if err != nil {
		return err
	}
	files, err := disc.DiscoverFiles()
	if err != nil {
		return err
	}

	idx, err := index.Build(cmd.Context(), files, parsers.NewPhpParser(), nil, nil)
	if err != nil {
		return err
	}
	return writeSymbols(cmd.OutOrStdout(), sourceDir, idx.Symbols(), kind)
}

// writeSymbols prints one tab-aligned row per symbol: kind, qualified name
// and location relative to root.
func writeSymbols(w io.Writer, root string, symbols []*parsers.Signature, kind parsers.SymbolKind) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, sig := range symbols {
		if kind != "" && sig.Kind != kind {
			continue
		}
		file := sig.File
		if rel, err := filepath.Rel(root, sig.File); err == nil {
			file = filepath.ToSlash(rel)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s:%d\n", sig.Kind, sig.QualifiedName(), file, sig.Line)
	}
	return tw.Flush()
}

func parseKind(name string) (parsers.SymbolKind, error) {
	if name == "" {
		return "", nil
	}
	for _, k := range listKinds {
		if string(k) == name {
			return k, nil
		}
	}
	return "", errors.WithHintf(
		errors.Newf("unknown symbol kind %q", name),
		"use one of: %s", kindNames(),
	)
}

func kindNames() string {
	names := make([]string, len(listKinds))
	for i, k := range listKinds {
		names[i] = string(k)
	}
	return strings.Join(names, ", ")
}
