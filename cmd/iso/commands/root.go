package commands

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/isotranslate/iso/pkg/cli"
	"github.com/isotranslate/iso/pkg/iso"
	"github.com/isotranslate/iso/pkg/kv"
	"github.com/isotranslate/iso/pkg/transcript"
)

var (
	// Global flags
	verbose     bool
	contextName string
	configPath  string

	// Global configuration (loaded at init time)
	globalConfig *cli.Config
)

var rootCmd = &cobra.Command{
	Use:   "iso",
	Short: "Realtime bilingual speech translator",
	Long: `iso - realtime speech translation between two languages.

Microphone audio is streamed to a realtime speech model which transcribes
and translates everything it hears into both configured languages. The
bilingual transcript is persisted locally and can be exported as text or
JSON, locally or to an S3-compatible bucket.

Providers:
  openai   OpenAI Realtime API (WebRTC or WebSocket)
  gemini   Gemini Live API

Configuration is stored in ~/.iso/config.yaml using named contexts.

Examples:
  # Create a context and start translating
  iso config add-context home --provider openai --openai-api-key sk-...
  iso config use-context home
  iso run --lang1 en --lang2 ja

  # Inspect the stored transcript and usage
  iso transcript show
  iso usage

  # Export the transcript
  iso transcript export --format json
  iso transcript export --s3`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVarP(&contextName, "context", "c", "", "config context to use (default: current context)")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file path (default ~/.iso/config.yaml)")
}

// configLoadErr stores the error from cli.LoadConfig for deferred reporting.
var configLoadErr error

func initConfig() {
	path := configPath
	if path == "" {
		path = os.Getenv("ISO_CONFIG")
	}
	cfg, err := cli.LoadConfigWithPath(path)
	if err != nil {
		// Store error for deferred reporting so commands that don't need
		// config (like 'iso version') still work.
		configLoadErr = err
		return
	}
	globalConfig = cfg
	configLoadErr = nil
}

// GetConfig returns the global configuration.
func GetConfig() (*cli.Config, error) {
	if globalConfig == nil {
		if configLoadErr != nil {
			return nil, fmt.Errorf("config not available: %w", configLoadErr)
		}
		initConfig()
		if globalConfig == nil {
			return nil, fmt.Errorf("config not available: %w", configLoadErr)
		}
	}
	return globalConfig, nil
}

// IsVerbose returns whether verbose mode is enabled.
func IsVerbose() bool {
	return verbose
}

// currentContext resolves the context selected by --context, falling
// back to the current context. A missing context is not fatal for
// commands that can run on flags and environment alone; those callers
// ignore the error.
func currentContext() (*cli.Context, error) {
	cfg, err := GetConfig()
	if err != nil {
		return nil, err
	}
	return cfg.ResolveContext(contextName)
}

// newLogger builds the slog logger commands hand to the session
// controller. Verbose mode enables debug-level provider dumps.
func newLogger() *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// dataDir returns the transcript database directory for the context,
// creating it if needed.
func dataDir(ctx *cli.Context) (string, error) {
	if ctx != nil && ctx.DataDir != "" {
		if err := os.MkdirAll(ctx.DataDir, 0755); err != nil {
			return "", fmt.Errorf("create data dir: %w", err)
		}
		return ctx.DataDir, nil
	}
	paths, err := cli.NewPaths()
	if err != nil {
		return "", err
	}
	if err := paths.EnsureDataDir(); err != nil {
		return "", fmt.Errorf("create data dir: %w", err)
	}
	return paths.DataDir(), nil
}

// openTranscript opens the persistent transcript store for the context.
// The caller must Close it.
func openTranscript(ctx *cli.Context) (*transcript.Store, error) {
	dir, err := dataDir(ctx)
	if err != nil {
		return nil, err
	}
	store, err := kv.NewBadger(kv.BadgerOptions{Dir: dir})
	if err != nil {
		return nil, fmt.Errorf("open transcript store: %w", err)
	}
	return transcript.New(store), nil
}

// resolveLanguagePair turns flag/context/default language selectors
// into registry entries.
func resolveLanguagePair(flag1, flag2 string, ctx *cli.Context) (iso.Language, iso.Language, error) {
	code1 := flag1
	code2 := flag2
	if code1 == "" && ctx != nil {
		code1 = ctx.Language1
	}
	if code2 == "" && ctx != nil {
		code2 = ctx.Language2
	}
	if code1 == "" {
		code1 = iso.DefaultLanguage1.Code
	}
	if code2 == "" {
		code2 = iso.DefaultLanguage2.Code
	}

	lang1, ok := iso.FindLanguage(code1)
	if !ok {
		return iso.Language{}, iso.Language{}, fmt.Errorf("unknown language %q (see 'iso languages')", code1)
	}
	lang2, ok := iso.FindLanguage(code2)
	if !ok {
		return iso.Language{}, iso.Language{}, fmt.Errorf("unknown language %q (see 'iso languages')", code2)
	}
	if lang1.ID == lang2.ID {
		return iso.Language{}, iso.Language{}, fmt.Errorf("language pair must differ, got %s twice", lang1.Code)
	}
	return lang1, lang2, nil
}
