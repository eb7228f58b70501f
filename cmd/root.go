package cmd

import (
	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "stemarena",
	Short: "Real-time two-player STEM battle server",
	Long: `stemarena runs head-to-head duels made of timed rounds: an arithmetic
phase, a chemical reaction phase and a shield building phase. Players
connect over websocket; rooms are created and joined with a short code.`,
	SilenceUsage: true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config directory or file (default ./config.yaml)")
	rootCmd.AddCommand(serveCmd, playCmd)
}
