package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/suykerbuyk/forge-reflect/internal/check"
	"github.com/suykerbuyk/forge-reflect/internal/config"
	"github.com/suykerbuyk/forge-reflect/internal/hook"
	"github.com/suykerbuyk/forge-reflect/internal/logger"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Check configuration and hook installation",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig("check")
		defer logger.Close()

		report := check.Run(cfg, workingDir())
		fmt.Print(report.Format())
		if report.HasFailures() {
			return errors.New("one or more checks failed")
		}
		return nil
	},
}

var hookCmd = &cobra.Command{
	Use:   "hook",
	Short: "Manage forge-reflect hooks in ~/.claude/settings.json",
}

var hookInstallCmd = &cobra.Command{
	Use:   "install",
	Short: "Register the insight, reflect, and surface hooks",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return hook.Install()
	},
}

var hookUninstallCmd = &cobra.Command{
	Use:   "uninstall",
	Short: "Remove the forge-reflect hooks",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return hook.Uninstall()
	},
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the user config overlay",
}

var configInitCmd = &cobra.Command{
	Use:   "init [user-root]",
	Short: "Write ~/.config/forge-reflect/config.toml",
	Long: `Write a default config.toml, or set user_root in an existing one.
user-root defaults to the current directory.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		root := workingDir()
		if len(args) > 0 {
			root = args[0]
		}
		path, action, err := config.WriteDefault(root)
		if err != nil {
			return err
		}
		fmt.Printf("%s %s\n", action, config.CompressHome(path))
		return nil
	},
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the config, state, and log paths",
	Run: func(cmd *cobra.Command, args []string) {
		cfg, _ := config.Load()
		fmt.Printf("config  %s/config.toml\n", config.CompressHome(config.ConfigDir()))
		fmt.Printf("plugin  %s\n", config.CompressHome(config.PluginRoot()))
		fmt.Printf("ledger  %s\n", config.CompressHome(cfg.LedgerPath()))
		fmt.Printf("logs    %s\n", config.CompressHome(cfg.LogDir()))
	},
}

func init() {
	hookCmd.AddCommand(hookInstallCmd, hookUninstallCmd)
	configCmd.AddCommand(configInitCmd, configPathCmd)
	rootCmd.AddCommand(checkCmd, hookCmd, configCmd)
}
