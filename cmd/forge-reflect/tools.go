package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/suykerbuyk/forge-reflect/internal/archive"
	"github.com/suykerbuyk/forge-reflect/internal/config"
	"github.com/suykerbuyk/forge-reflect/internal/discover"
	"github.com/suykerbuyk/forge-reflect/internal/ledger"
	"github.com/suykerbuyk/forge-reflect/internal/logger"
	"github.com/suykerbuyk/forge-reflect/internal/transcript"
	"github.com/suykerbuyk/forge-reflect/internal/watch"
)

// report is the JSON printed by analyze and watch.
type report struct {
	Transcript string              `json:"transcript"`
	Analysis   transcript.Analysis `json:"analysis"`
	Uncaptured []string            `json:"uncaptured"`
	Untitled   int                 `json:"untitled_uncaptured"`
}

func newReport(path string, a transcript.Analysis) report {
	u := transcript.FindUncaptured(a)
	topics := u.Topics
	if topics == nil {
		topics = []string{}
	}
	return report{Transcript: path, Analysis: a, Uncaptured: topics, Untitled: u.Untitled}
}

// resolveTranscript returns args[0], the transcript for sessionID, or the
// newest transcript for the current directory, in that order.
func resolveTranscript(args []string, sessionID string) (string, error) {
	if len(args) > 0 {
		return args[0], nil
	}
	base := discover.ProjectsDir()
	if sessionID != "" {
		path, err := discover.FindBySessionID(base, sessionID)
		if err != nil {
			return "", fmt.Errorf("session %s not found under %s: %w", sessionID, config.CompressHome(base), err)
		}
		return path, nil
	}
	path, err := discover.Latest(base, workingDir())
	if err != nil {
		return "", fmt.Errorf("no transcript found under %s: %w", config.CompressHome(base), err)
	}
	return path, nil
}

// archiveTranscript compresses src into dir. An existing archive for the
// same session is left alone unless force is set; created reports whether
// a new archive was written.
func archiveTranscript(src, dir string, force bool) (dst string, created bool, err error) {
	if id := archive.SessionID(src); id != "" && !force && archive.IsArchived(id, dir) {
		return archive.ArchivePath(id, dir), false, nil
	}
	dst, err = archive.Archive(src, dir)
	if err != nil {
		return "", false, err
	}
	return dst, true, nil
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze [transcript]",
	Short: "Print the analysis of a transcript as JSON",
	Long: `Analyze a session transcript (.jsonl or .jsonl.zst) and print the
summary with its uncaptured insight topics. Without an argument the
transcript of --session-id, or else the most recent transcript for the
current directory, is used.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig("analyze")
		defer logger.Close()

		sessionID, _ := cmd.Flags().GetString("session-id")
		path, err := resolveTranscript(args, sessionID)
		if err != nil {
			return err
		}
		w := watch.New(path, cfg.TranscriptRules())
		a, err := w.Analyze()
		if err != nil {
			return fmt.Errorf("analyze %s: %w", path, err)
		}
		return printJSON(newReport(path, a))
	},
}

var watchCmd = &cobra.Command{
	Use:   "watch [transcript]",
	Short: "Re-analyze a transcript as it grows",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig("watch")
		defer logger.Close()

		sessionID, _ := cmd.Flags().GetString("session-id")
		path, err := resolveTranscript(args, sessionID)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		fmt.Fprintf(os.Stderr, "watching %s (Ctrl-C to stop)\n", config.CompressHome(path))
		w := watch.New(path, cfg.TranscriptRules())
		return w.Run(ctx, func(a transcript.Analysis) {
			r := newReport(path, a)
			fmt.Printf("%s  msgs=%d tools=%d min=%d insights=%d written=%d uncaptured=%d\n",
				time.Now().Format("15:04:05"), a.UserMessages, a.ToolUsingTurns,
				a.SessionDurationMinutes, a.InsightCount, a.InsightsWriteCount,
				len(r.Uncaptured)+r.Untitled)
		})
	},
}

var archiveCmd = &cobra.Command{
	Use:   "archive <transcript>",
	Short: "Compress a transcript into the state directory",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		loadConfig("archive")
		defer logger.Close()

		dir, _ := cmd.Flags().GetString("dir")
		if dir == "" {
			dir = filepath.Join(config.StateDir(), "archive")
		}
		force, _ := cmd.Flags().GetBool("force")
		dst, created, err := archiveTranscript(args[0], dir, force)
		if err != nil {
			return err
		}
		if !created {
			fmt.Printf("already archived %s\n", config.CompressHome(dst))
			return nil
		}
		fmt.Println(config.CompressHome(dst))
		return nil
	},
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent hook verdicts",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig("history")
		defer logger.Close()

		limit, _ := cmd.Flags().GetInt("limit")
		l, err := ledger.Open(cfg.LedgerPath())
		if err != nil {
			return err
		}
		defer l.Close()

		entries, err := l.Recent(limit)
		if err != nil {
			return err
		}
		totals, err := l.Totals()
		if err != nil {
			return err
		}

		if len(entries) == 0 {
			fmt.Println("No verdicts recorded")
			return nil
		}

		tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "WHEN\tHOOK\tDECISION\tMSGS\tTOOLS\tMIN\tUNCAPTURED")
		for _, e := range entries {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%d\t%s\n",
				e.RecordedAt.Local().Format("2006-01-02 15:04"), e.Hook, e.Decision,
				e.UserMessages, e.ToolUsingTurns, e.DurationMinutes,
				strings.Join(e.Uncaptured, ", "))
		}
		tw.Flush()

		fmt.Println()
		for _, t := range totals {
			fmt.Printf("%-8s %-8s %d\n", t.Hook, t.Decision, t.Count)
		}
		return nil
	},
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func init() {
	for _, c := range []*cobra.Command{analyzeCmd, watchCmd} {
		c.Flags().String("session-id", "", "analyze the transcript of this session")
	}
	archiveCmd.Flags().String("dir", "", "archive directory (default: state dir/archive)")
	archiveCmd.Flags().Bool("force", false, "re-archive even if an archive exists")
	historyCmd.Flags().Int("limit", 20, "number of entries to show")

	rootCmd.AddCommand(analyzeCmd, watchCmd, archiveCmd, historyCmd)
}
