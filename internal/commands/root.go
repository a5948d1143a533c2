package commands

import (
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/cp25sy5-modjot/expense-extractor/internal/config"
	"github.com/cp25sy5-modjot/expense-extractor/internal/logger"
)

type rootOptions struct {
	configPath string
	verbose    bool
}

func (o *rootOptions) load() (*config.Config, zerolog.Logger, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, zerolog.Nop(), err
	}
	level := zerolog.WarnLevel
	if o.verbose {
		level = logger.ParseLevel(cfg.LogLevel)
	}
	return cfg, logger.New().Level(level), nil
}

// NewRootCommand creates the root CLI command with all subcommands registered.
func NewRootCommand() *cobra.Command {
	opts := &rootOptions{}
	rootCmd := &cobra.Command{
		Use:   "extractor",
		Short: "Extract expense records from receipts and chat lines",
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "YAML config file")
	rootCmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "log pipeline activity to stderr")

	rootCmd.AddCommand(newLineCommand(opts))
	rootCmd.AddCommand(newDocumentCommand(opts))

	return rootCmd
}
