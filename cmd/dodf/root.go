package main

import (
	"github.com/spf13/cobra"

	"github.com/use-agent/dodf/config"
)

// cfg is loaded once before any subcommand runs.
var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "dodf",
	Short: "Collect Notas de Empenho from the Diário Oficial do Distrito Federal",
	Long: `dodf walks the DODF listing for the "Extrato" category, reads every
Nota de Empenho it links to, and writes the extracted fields to an .xlsx file.

Configuration comes from built-in defaults, the TOML file named by
DODF_CONFIG, and DODF_* environment variables, in that order.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load()
		if err != nil {
			return err
		}
		if level, _ := cmd.Flags().GetString("log-level"); level != "" {
			loaded.Log.Level = level
		}
		cfg = loaded
		initLogger(cfg.Log)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().String("log-level", "", "override the log level (debug, info, warn, error)")
}
