package hook

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"golang.org/x/term"

	"github.com/suykerbuyk/forge-reflect/internal/archive"
	"github.com/suykerbuyk/forge-reflect/internal/config"
	"github.com/suykerbuyk/forge-reflect/internal/logger"
	"github.com/suykerbuyk/forge-reflect/internal/noteparse"
	"github.com/suykerbuyk/forge-reflect/internal/sanitize"
	"github.com/suykerbuyk/forge-reflect/internal/transcript"
)

const (
	stdinTimeout = 2 * time.Second
	maxTopics    = 5
)

// Input is the JSON object Claude Code sends to hooks via stdin.
type Input struct {
	SessionID      string `json:"session_id"`
	TranscriptPath string `json:"transcript_path"`
	HookEventName  string `json:"hook_event_name"`
	CWD            string `json:"cwd"`
	StopHookActive bool   `json:"stop_hook_active"`
	// Trigger is set ("manual" or "auto") only for PreCompact.
	Trigger string `json:"trigger,omitempty"`
	// Source is set for SessionStart ("startup", "resume", "clear", "compact").
	Source string `json:"source,omitempty"`
}

// Verdict is the outcome of a hook policy.
type Verdict string

const (
	Allow   Verdict = "allow"
	Block   Verdict = "block"
	Warn    Verdict = "warn"
	Skip    Verdict = "skip"
	Context Verdict = "context"
)

// Output is the JSON a hook prints on stdout. An empty stdout means allow.
type Output struct {
	Decision          string `json:"decision,omitempty"`
	Reason            string `json:"reason,omitempty"`
	AdditionalContext string `json:"additionalContext,omitempty"`
}

// Outcome records what a policy decided and why.
type Outcome struct {
	Hook       string
	Verdict    Verdict
	Note       string
	Analysis   transcript.Analysis
	Uncaptured transcript.Uncaptured
	Output     *Output
}

// Write prints the outcome's hook JSON, if any, as a single line.
func (o Outcome) Write(w io.Writer) error {
	if o.Output == nil {
		return nil
	}
	data, err := json.Marshal(o.Output)
	if err != nil {
		return fmt.Errorf("marshal hook output: %w", err)
	}
	_, err = fmt.Fprintf(w, "%s\n", data)
	return err
}

// ReadStdin reads hook input from stdin. A terminal stdin yields an empty
// Input so the command can be run by hand.
func ReadStdin() (Input, error) {
	if term.IsTerminal(int(os.Stdin.Fd())) {
		return Input{}, nil
	}

	done := make(chan []byte, 1)
	errCh := make(chan error, 1)

	go func() {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			errCh <- err
			return
		}
		done <- data
	}()

	select {
	case data := <-done:
		return ParseInput(data)
	case err := <-errCh:
		return Input{}, fmt.Errorf("read stdin: %w", err)
	case <-time.After(stdinTimeout):
		return Input{}, fmt.Errorf("stdin read timeout")
	}
}

// ParseInput decodes hook input JSON. Blank input yields an empty Input.
func ParseInput(data []byte) (Input, error) {
	var input Input
	if len(strings.TrimSpace(string(data))) == 0 {
		return input, nil
	}
	if err := json.Unmarshal(data, &input); err != nil {
		return Input{}, fmt.Errorf("parse hook input JSON: %w", err)
	}
	return input, nil
}

// analyzeFile runs the engine over a transcript file, .jsonl or .jsonl.zst.
// Only a transcript that cannot be opened is an error; a read failure
// partway through is logged and the lines read so far are analyzed.
func analyzeFile(cfg config.Config, path string) (transcript.Analysis, error) {
	if path == "" {
		return transcript.Analysis{}, fmt.Errorf("no transcript_path in hook input")
	}
	rc, err := archive.Open(path)
	if err != nil {
		return transcript.Analysis{}, err
	}
	defer rc.Close()

	a, err := transcript.NewAnalyzer(cfg.TranscriptRules()).AnalyzeReader(rc)
	if err != nil {
		logger.Warn("partial transcript %s: %v", path, err)
	}
	return a, nil
}

// loadSkill returns the instruction text of a skill file under the user
// root, or fallback when the file is missing or empty.
func loadSkill(cfg config.Config, cwd, relative, fallback string) string {
	if text, ok := noteparse.LoadPattern(cfg.ResolveUserPath(cwd, ""), relative); ok {
		return text
	}
	return fallback
}

// topicList renders up to maxTopics cleaned topics for a hook message.
func topicList(topics []string) string {
	topics = sanitize.Topics(topics)
	if len(topics) > maxTopics {
		topics = topics[:maxTopics]
	}
	return strings.Join(topics, ", ")
}

// guard applies the Stop-hook skip rules shared by both policies. It returns
// the analysis, or a Skip outcome when the hook should stay silent.
func guard(cfg config.Config, hook string, in Input) (transcript.Analysis, *Outcome) {
	if in.StopHookActive {
		return transcript.Analysis{}, &Outcome{Hook: hook, Verdict: Skip, Note: "stop_hook_active, deferring"}
	}
	if !cfg.InDataDir(in.CWD) {
		return transcript.Analysis{}, &Outcome{Hook: hook, Verdict: Skip,
			Note: fmt.Sprintf("cwd %q outside data dir, skipping", in.CWD)}
	}
	a, err := analyzeFile(cfg, in.TranscriptPath)
	if err != nil {
		return a, &Outcome{Hook: hook, Verdict: Skip,
			Note: fmt.Sprintf("transcript unreadable at %q (%v), skipping", in.TranscriptPath, err)}
	}
	return a, nil
}

// Insight blocks the Stop event while insight blocks from the session
// remain neither persisted nor acknowledged.
func Insight(cfg config.Config, in Input) Outcome {
	a, skip := guard(cfg, "insight", in)
	if skip != nil {
		return *skip
	}

	u := transcript.FindUncaptured(a)
	out := Outcome{Hook: "insight", Analysis: a, Uncaptured: u}
	if u.Pending() == 0 {
		out.Verdict = Allow
		out.Note = fmt.Sprintf("%d insight(s), %d Insight file(s) written, all captured",
			a.InsightCount, a.InsightsWriteCount)
		return out
	}

	base := loadSkill(cfg, in.CWD, cfg.InsightCheck, cfg.UncapturedInsightReason)
	reason := fmt.Sprintf("%s (%d insight(s) found, %d Insight file(s) written)",
		base, a.InsightCount, a.InsightsWriteCount)
	if len(u.Topics) > 0 {
		reason += fmt.Sprintf("\n\nUncaptured topics: %s.", topicList(u.Topics))
	}

	out.Verdict = Block
	out.Note = fmt.Sprintf("blocking, %d uncaptured (%d titled, %d untitled)",
		u.Pending(), len(u.Topics), u.Untitled)
	out.Output = &Output{Decision: "block", Reason: reason}
	return out
}

// Substantial reports whether a session is long or busy enough that ending
// it without a memory write warrants reflection.
func Substantial(cfg config.Config, a transcript.Analysis) bool {
	long := a.SessionDurationMinutes >= uint64(max(cfg.DurationThresholdMinutes, 0)) &&
		a.UserMessages >= cfg.UserMsgFloor
	busy := a.ToolUsingTurns >= cfg.ToolTurnThreshold &&
		a.UserMessages >= cfg.UserMsgThreshold
	return long || busy
}

// Reflect handles both PreCompact (inject the reflection prompt) and Stop
// (require a memory write after a substantial session).
func Reflect(cfg config.Config, in Input) Outcome {
	if in.CWD == "" {
		in.CWD, _ = os.Getwd()
	}
	if in.Trigger != "" {
		return preCompact(cfg, in)
	}

	a, skip := guard(cfg, "reflect", in)
	if skip != nil {
		return *skip
	}

	out := Outcome{Hook: "reflect", Analysis: a}
	stats := fmt.Sprintf("%d min, %d msgs, %d tool turns",
		a.SessionDurationMinutes, a.UserMessages, a.ToolUsingTurns)

	switch {
	case !Substantial(cfg, a):
		out.Verdict = Allow
		out.Note = fmt.Sprintf("session not substantial (%s), allowing", stats)
	case a.HasMemoryWrite:
		out.Verdict = Allow
		out.Note = fmt.Sprintf("substantial session (%s) with memory writes", stats)
	case cfg.ReflectBlockingEnabled():
		out.Verdict = Block
		out.Note = fmt.Sprintf("blocking, substantial session (%s) with no memory writes", stats)
		out.Output = &Output{
			Decision: "block",
			Reason:   loadSkill(cfg, in.CWD, cfg.Reflection, cfg.FallbackReason),
		}
	default:
		out.Verdict = Warn
		out.Note = fmt.Sprintf("substantial session (%s) with no memory writes", stats)
	}
	return out
}

// preCompact runs everywhere, without the data-dir scope check, and never
// blocks. A missing transcript only drops the topic list.
func preCompact(cfg config.Config, in Input) Outcome {
	out := Outcome{Hook: "reflect", Verdict: Context}
	reason := loadSkill(cfg, in.CWD, cfg.Reflection, cfg.FallbackReason)

	var topics string
	if a, err := analyzeFile(cfg, in.TranscriptPath); err == nil {
		out.Analysis = a
		out.Uncaptured = transcript.FindUncaptured(a)
		if len(out.Uncaptured.Topics) > 0 {
			topics = fmt.Sprintf("\n\nUncaptured topics from this session: %s.", topicList(out.Uncaptured.Topics))
		}
		out.Note = fmt.Sprintf("precompact, %d msgs, %d tool turns, %d min, %d uncaptured",
			a.UserMessages, a.ToolUsingTurns, a.SessionDurationMinutes, len(out.Uncaptured.Topics))
	} else {
		out.Note = fmt.Sprintf("precompact, transcript unavailable (%v)", err)
	}

	out.Output = &Output{AdditionalContext: cfg.PrecompactPrefix + reason + topics}
	return out
}

// Log reports the outcome through the package logger. Warnings reach
// stderr, which the hook's caller surfaces to the user.
func (o Outcome) Log() {
	switch o.Verdict {
	case Warn, Block:
		logger.Warn("%s: %s", o.Hook, o.Note)
	default:
		logger.Info("%s: %s", o.Hook, o.Note)
	}
}
