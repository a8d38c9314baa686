package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/isotranslate/iso/pkg/cli"
	"github.com/isotranslate/iso/pkg/geminilive"
	"github.com/isotranslate/iso/pkg/iso"
	"github.com/isotranslate/iso/pkg/openairt"
)

var (
	runProvider   string
	runMode       string
	runModel      string
	runVoice      string
	runLang1      string
	runLang2      string
	runPlain      bool
	runNoStore    bool
	runNoEventLog bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start a live translation session",
	Long: `Start a live translation session.

Microphone audio is streamed to the selected provider; every utterance
is transcribed and translated into both languages. Segments are shown
live and appended to the persistent transcript.

Stop with q (in the TUI) or Ctrl+C.`,
	RunE: runSession,
}

func init() {
	f := runCmd.Flags()
	f.StringVar(&runProvider, "provider", "", "realtime provider: openai or gemini")
	f.StringVar(&runMode, "mode", "", "OpenAI connection mode: webrtc or websocket")
	f.StringVar(&runModel, "model", "", "realtime model override")
	f.StringVar(&runVoice, "voice", "", "voice override")
	f.StringVar(&runLang1, "lang1", "", "first language (code or id)")
	f.StringVar(&runLang2, "lang2", "", "second language (code or id)")
	f.BoolVar(&runPlain, "plain", false, "print segments line by line instead of the TUI")
	f.BoolVar(&runNoStore, "no-store", false, "do not persist this session's transcript")
	f.BoolVar(&runNoEventLog, "no-event-log", false, "do not write the session event log file")

	rootCmd.AddCommand(runCmd)
}

// pick returns the first non-empty value.
func pick(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func runSession(cmd *cobra.Command, args []string) error {
	// A missing context is fine as long as flags and environment carry
	// the provider and credential.
	cfgCtx, _ := currentContext()

	var ctxProvider, ctxMode, ctxModel, ctxVoice string
	if cfgCtx != nil {
		ctxProvider = cfgCtx.Provider
		ctxMode = cfgCtx.Mode
		ctxModel = cfgCtx.Model
		ctxVoice = cfgCtx.Voice
	}

	provider := pick(runProvider, ctxProvider, "openai")
	if provider != "openai" && provider != "gemini" {
		return fmt.Errorf("unknown provider %q (want openai or gemini)", provider)
	}

	lang1, lang2, err := resolveLanguagePair(runLang1, runLang2, cfgCtx)
	if err != nil {
		return err
	}

	apiKey := resolveAPIKey(cfgCtx, provider)
	if apiKey == "" {
		return fmt.Errorf("no API key for provider %s; set it with 'iso config set %s-api-key <key>' or the %s environment variable",
			provider, provider, apiKeyEnvVar(provider))
	}

	logger := newLogger()

	var transport iso.Transport
	switch provider {
	case "openai":
		mode := pick(runMode, ctxMode, string(openairt.ModeWebRTC))
		if mode != string(openairt.ModeWebRTC) && mode != string(openairt.ModeWebSocket) {
			return fmt.Errorf("unknown mode %q (want webrtc or websocket)", mode)
		}
		transport = openairt.NewTransport(
			openairt.WithMode(openairt.Mode(mode)),
			openairt.WithTransportLogger(logger),
		)
	case "gemini":
		transport = geminilive.NewTransport(geminilive.WithLogger(logger))
	}

	opts := []iso.Option{
		iso.WithLogger(logger),
		iso.WithModel(pick(runModel, ctxModel)),
		iso.WithVoice(pick(runVoice, ctxVoice)),
	}

	if !runNoStore {
		store, err := openTranscript(cfgCtx)
		if err != nil {
			return err
		}
		defer store.Close()
		opts = append(opts, iso.WithStore(store))
	}

	if runPlain {
		opts = append(opts, iso.WithSegmentListener(printSegment))
	}

	ctrl := iso.NewController(transport,
		func(context.Context) (string, error) { return apiKey, nil },
		lang1, lang2, opts...)

	if err := ctrl.Restore(cmd.Context()); err != nil {
		return err
	}
	if err := ctrl.StartSession(cmd.Context()); err != nil {
		return err
	}
	defer ctrl.StopSession()

	if runPlain {
		fmt.Printf("Translating %s ⇄ %s via %s. Press Ctrl+C to stop.\n",
			lang1.Code, lang2.Code, provider)
		waitCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()
		<-waitCtx.Done()
	} else {
		p := tea.NewProgram(newSessionModel(ctrl, provider), tea.WithAltScreen())
		if _, err := p.Run(); err != nil {
			return fmt.Errorf("tui: %w", err)
		}
	}

	ctrl.StopSession()

	if !runNoEventLog {
		if path, err := writeEventLog(ctrl.Events()); err != nil {
			cli.PrintWarning("event log not written: %v", err)
		} else {
			cli.PrintVerbose(IsVerbose(), "event log: %s", path)
		}
	}

	fmt.Println()
	for _, line := range usageLines(ctrl.Usage()) {
		fmt.Println(line)
	}
	return nil
}

// resolveAPIKey returns the context credential for the provider, or the
// conventional environment variable as a fallback.
func resolveAPIKey(ctx *cli.Context, provider string) string {
	if ctx != nil {
		if key := ctx.APIKeyFor(provider); key != "" {
			return key
		}
	}
	return os.Getenv(apiKeyEnvVar(provider))
}

func apiKeyEnvVar(provider string) string {
	if provider == "gemini" {
		return "GEMINI_API_KEY"
	}
	return "OPENAI_API_KEY"
}

func printSegment(seg iso.TranslationSegment) {
	fmt.Printf("[%s] speaker %d\n", seg.Timestamp.Time().Local().Format("15:04:05"), seg.Speaker)
	for _, lang := range []iso.Language{seg.Language1, seg.Language2} {
		if text, ok := seg.Translations[lang.Code]; ok {
			fmt.Printf("  %s: %s\n", lang.Code, text)
		}
	}
}

// writeEventLog dumps the session's event snapshot to a timestamped
// JSON-lines file under ~/.iso/logs and returns its path.
func writeEventLog(events []*iso.SessionEvent) (string, error) {
	paths, err := cli.NewPaths()
	if err != nil {
		return "", err
	}
	if err := paths.EnsureLogDir(); err != nil {
		return "", err
	}
	path := paths.LogPath(sessionLogName(time.Now()))

	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetEscapeHTML(false)
	// Snapshot is newest first; the file reads chronologically.
	for i := len(events) - 1; i >= 0; i-- {
		if err := enc.Encode(events[i]); err != nil {
			return "", err
		}
	}
	return path, nil
}
