package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mvp-joe/stubgen/internal/config"
	"github.com/mvp-joe/stubgen/internal/errors"
	"github.com/mvp-joe/stubgen/internal/logger"
)

var (
	cfgFile   string
	verbosity int
	logJSON   bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "stubgen",
	Short: "Generate signature-only PHP stubs for WordPress plugins",
	Long: `stubgen reads the source tree of a PHP library such as a WordPress plugin
and writes a stub file containing only the declarations listed in a
definition file: signatures, doc comments and empty bodies.

Static analysers (PHPStan, Psalm, IDEs) load the stub file instead of the
plugin itself, so a project can type-check against the plugin's public API
without shipping or executing its code.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return logger.Initialize(verbosity, logJSON)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		printError(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is .stubgen/config.yml)")
	rootCmd.PersistentFlags().CountVarP(&verbosity, "verbose", "v", "verbose output (-v info, -vv debug)")
	rootCmd.PersistentFlags().BoolVar(&logJSON, "log-json", false, "emit logs as JSON")
}

// loadConfig reads the --config file when given, otherwise
// .stubgen/config.yml under the working directory.
func loadConfig() (*config.Config, error) {
	if cfgFile != "" {
		return config.NewFileLoader(cfgFile).Load()
	}
	return config.LoadConfig()
}

// printError writes err with its details and hints.
func printError(w io.Writer, err error) {
	fmt.Fprintf(w, "Error: %v\n", err)
	for _, detail := range errors.GetAllDetails(err) {
		for _, line := range strings.Split(detail, "\n") {
			fmt.Fprintf(w, "  %s\n", line)
		}
	}
	for _, hint := range errors.GetAllHints(err) {
		fmt.Fprintf(w, "Hint: %s\n", hint)
	}
}
