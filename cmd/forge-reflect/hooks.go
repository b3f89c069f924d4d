package main

import (
	"context"
	"os"
	"slices"
	"time"

	"github.com/spf13/cobra"

	"github.com/suykerbuyk/forge-reflect/internal/config"
	"github.com/suykerbuyk/forge-reflect/internal/discover"
	"github.com/suykerbuyk/forge-reflect/internal/hook"
	"github.com/suykerbuyk/forge-reflect/internal/ledger"
	"github.com/suykerbuyk/forge-reflect/internal/logger"
	"github.com/suykerbuyk/forge-reflect/internal/surface"
)

var insightCmd = &cobra.Command{
	Use:   "insight",
	Short: "Stop hook: block while ★ Insight blocks are uncaptured",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runPolicy(cmd, "insight", hook.Insight)
	},
}

var reflectCmd = &cobra.Command{
	Use:   "reflect",
	Short: "Stop/PreCompact hook: require reflection after substantial sessions",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runPolicy(cmd, "reflect", hook.Reflect)
	},
}

var surfaceCmd = &cobra.Command{
	Use:   "surface",
	Short: "SessionStart hook: print the daily digest",
	RunE:  runSurface,
}

func init() {
	for _, c := range []*cobra.Command{insightCmd, reflectCmd} {
		c.Flags().String("cwd", "", "session working directory (overrides stdin)")
		c.Flags().String("transcript-path", "", "transcript to analyze (overrides stdin)")
		c.Flags().String("session-id", "", "session id (overrides stdin)")
		c.Flags().Bool("stop-hook-active", false, "treat as a re-entrant Stop hook")
	}
	reflectCmd.Flags().String("trigger", "", "PreCompact trigger (manual or auto)")
	surfaceCmd.Flags().String("cwd", "", "working directory (default: current)")

	rootCmd.AddCommand(insightCmd, reflectCmd, surfaceCmd)
}

// inputFlags may stand in for the hook JSON on stdin.
var inputFlags = []string{"cwd", "transcript-path", "session-id", "stop-hook-active", "trigger"}

// hookInput reads stdin unless an input flag is set, then applies the
// flags. A session id without a transcript path is resolved under
// ~/.claude/projects.
func hookInput(cmd *cobra.Command) (hook.Input, error) {
	flags := cmd.Flags()

	var in hook.Input
	if !slices.ContainsFunc(inputFlags, flags.Changed) {
		var err error
		if in, err = hook.ReadStdin(); err != nil {
			return in, err
		}
	}

	str := func(name string, dst *string) {
		if flags.Changed(name) {
			*dst, _ = flags.GetString(name)
		}
	}
	str("cwd", &in.CWD)
	str("transcript-path", &in.TranscriptPath)
	str("session-id", &in.SessionID)
	str("trigger", &in.Trigger)
	if flags.Changed("stop-hook-active") {
		in.StopHookActive, _ = flags.GetBool("stop-hook-active")
	}

	if in.TranscriptPath == "" && in.SessionID != "" {
		path, err := discover.FindBySessionID(discover.ProjectsDir(), in.SessionID)
		if err != nil {
			logger.Debug("session %s: %v", in.SessionID, err)
		} else {
			in.TranscriptPath = path
		}
	}
	return in, nil
}

// runPolicy runs a hook policy end to end. Policy outcomes never produce a
// non-zero exit.
func runPolicy(cmd *cobra.Command, name string, policy func(config.Config, hook.Input) hook.Outcome) error {
	cfg := loadConfig(name)
	defer logger.Close()

	in, err := hookInput(cmd)
	if err != nil {
		logger.Warn("%v", err)
		return nil
	}

	out := policy(cfg, in)
	out.Log()
	record(cfg, in, out)

	if err := out.Write(os.Stdout); err != nil {
		logger.Error("write output: %v", err)
	}
	return nil
}

// record appends the outcome to the ledger. Failures are logged only.
func record(cfg config.Config, in hook.Input, out hook.Outcome) {
	if !cfg.Ledger.Enabled {
		return
	}
	l, err := ledger.Open(cfg.LedgerPath())
	if err != nil {
		logger.Debug("ledger: %v", err)
		return
	}
	defer l.Close()

	a := out.Analysis
	_, err = l.Record(ledger.Entry{
		Hook:               out.Hook,
		SessionID:          in.SessionID,
		CWD:                in.CWD,
		Decision:           string(out.Verdict),
		UserMessages:       a.UserMessages,
		ToolUsingTurns:     a.ToolUsingTurns,
		DurationMinutes:    a.SessionDurationMinutes,
		InsightCount:       a.InsightCount,
		InsightsWriteCount: a.InsightsWriteCount,
		Uncaptured:         out.Uncaptured.Topics,
	})
	if err != nil {
		logger.Debug("ledger: %v", err)
	}
}

func runSurface(cmd *cobra.Command, args []string) error {
	cfg := loadConfig("surface")
	defer logger.Close()

	// SessionStart sends JSON on stdin; only its cwd is of interest.
	var cwd string
	if cmd.Flags().Changed("cwd") {
		cwd, _ = cmd.Flags().GetString("cwd")
	} else if in, err := hook.ReadStdin(); err != nil {
		logger.Debug("%v", err)
	} else {
		cwd = in.CWD
	}
	if cwd == "" {
		cwd = workingDir()
	}

	d := &surface.Digest{
		Config: cfg,
		CWD:    cwd,
		Today:  time.Now(),
		Source: surface.ExecSource{SafeRead: surface.SafeReadPath(cfg, os.Getenv("FORGE_ROOT"))},
	}
	if out := d.Render(context.Background()); out != "" {
		os.Stdout.WriteString(out)
	}
	return nil
}
