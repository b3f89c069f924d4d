package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/suykerbuyk/forge-reflect/internal/config"
	"github.com/suykerbuyk/forge-reflect/internal/logger"
)

var version = "0.3.0"

var rootCmd = &cobra.Command{
	Use:   "forge-reflect",
	Short: "Session reflection hooks for Claude Code",
	Long: `forge-reflect analyzes Claude Code session transcripts and nudges the
assistant to persist insights and learnings before a session ends.

Hook commands (insight, reflect, surface) read the hook JSON on stdin,
print their decision on stdout, and always exit 0.`,
	SilenceUsage: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig loads the layered config and starts file logging tagged with
// component. A config parse error is logged and the layers loaded before
// it stay in effect.
func loadConfig(component string) config.Config {
	cfg, err := config.Load()

	if lerr := logger.Init(cfg.LogDir(), logger.ParseLevel(cfg.Log.Level), component); lerr != nil {
		fmt.Fprintf(os.Stderr, "forge-reflect[%s]: %v\n", component, lerr)
	}
	if err != nil {
		logger.Warn("config: %v", err)
	}
	return cfg
}

func workingDir() string {
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}
	return cwd
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("forge-reflect v%s\n", version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
