package commands

import (
	"github.com/spf13/cobra"

	"github.com/GordonCopestake/Logisplit/cmd/logisplit/ui"
	"github.com/GordonCopestake/Logisplit/internal/config"
	"github.com/GordonCopestake/Logisplit/internal/observability"
)

var (
	cfgFile string
	verbose bool
	noColor bool

	cfg    *config.Config
	logger *observability.Logger
)

var rootCmd = &cobra.Command{
	Use:   "logisplit",
	Short: "Logisplit - split scanned PDF batches into named documents",
	Long: `Logisplit previews a PDF locally, sends it to the Logisplit processing service,
follows per-page progress and saves the resulting archive. It also manages the
rename patterns the service uses to name the split documents.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load(cfgFile)
		if err != nil {
			return err
		}
		cfg = loaded

		if verbose {
			cfg.Observability.LogLevel = "debug"
		}
		logger = observability.NewLogger(observability.LogConfig{
			Level:       cfg.Observability.LogLevel,
			Format:      cfg.Observability.LogFormat,
			ServiceName: cfg.Observability.ServiceName,
		})

		ui.InitUI(noColor, verbose)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
