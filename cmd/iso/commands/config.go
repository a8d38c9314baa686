package commands

import (
	"fmt"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/isotranslate/iso/pkg/cli"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage CLI configuration",
	Long: `Manage named contexts holding provider credentials and session defaults.

Examples:
  iso config add-context home --provider openai --openai-api-key sk-xxx
  iso config add-context travel --provider gemini --gemini-api-key xxx --lang1 en --lang2 es
  iso config use-context home
  iso config set voice marin
  iso config show`,
}

// add-context flags mirror the Context fields.
var addContextCtx cli.Context

var configAddContextCmd = &cobra.Command{
	Use:   "add-context <name>",
	Short: "Create a new context",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := GetConfig()
		if err != nil {
			return err
		}
		name := args[0]

		ctx := addContextCtx
		if err := cfg.AddContext(name, &ctx); err != nil {
			return err
		}
		fmt.Printf("Context %q created.\n", name)
		if cfg.CurrentContext == "" {
			if err := cfg.UseContext(name); err != nil {
				return err
			}
			fmt.Printf("Switched to context %q.\n", name)
		}
		return nil
	},
}

var configDeleteContextCmd = &cobra.Command{
	Use:   "delete-context <name>",
	Short: "Delete a context",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := GetConfig()
		if err != nil {
			return err
		}
		if err := cfg.DeleteContext(args[0]); err != nil {
			return err
		}
		fmt.Printf("Context %q deleted.\n", args[0])
		return nil
	},
}

var configUseContextCmd = &cobra.Command{
	Use:   "use-context <name>",
	Short: "Set the current context",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := GetConfig()
		if err != nil {
			return err
		}
		if err := cfg.UseContext(args[0]); err != nil {
			return err
		}
		fmt.Printf("Switched to context %q.\n", args[0])
		return nil
	},
}

var configCurrentContextCmd = &cobra.Command{
	Use:   "current-context",
	Short: "Display the current context name",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := GetConfig()
		if err != nil {
			return err
		}
		if cfg.CurrentContext == "" {
			fmt.Println("No current context set.")
			return nil
		}
		fmt.Println(cfg.CurrentContext)
		return nil
	},
}

var configListContextsCmd = &cobra.Command{
	Use:     "list-contexts",
	Aliases: []string{"ls"},
	Short:   "List all contexts",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := GetConfig()
		if err != nil {
			return err
		}
		names := cfg.ListContexts()
		if len(names) == 0 {
			fmt.Println("No contexts configured.")
			fmt.Println("Create one with: iso config add-context <name>")
			return nil
		}
		sort.Strings(names)

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "CURRENT\tNAME\tPROVIDER\tLANGUAGES\tAPI KEY")
		for _, name := range names {
			ctx := cfg.Contexts[name]
			current := ""
			if name == cfg.CurrentContext {
				current = "*"
			}
			provider := ctx.Provider
			if provider == "" {
				provider = "openai"
			}
			langs := ""
			if ctx.Language1 != "" || ctx.Language2 != "" {
				langs = ctx.Language1 + "/" + ctx.Language2
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
				current, name, provider, langs, cli.MaskAPIKey(ctx.APIKeyFor(provider)))
		}
		return w.Flush()
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show [name]",
	Short: "Show a context (API keys masked)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := GetConfig()
		if err != nil {
			return err
		}
		name := contextName
		if len(args) == 1 {
			name = args[0]
		}
		ctx, err := cfg.ResolveContext(name)
		if err != nil {
			return err
		}

		shown := *ctx
		shown.OpenAIAPIKey = cli.MaskAPIKey(shown.OpenAIAPIKey)
		shown.GeminiAPIKey = cli.MaskAPIKey(shown.GeminiAPIKey)
		return cli.Output(&shown, cli.OutputOptions{Format: cli.FormatYAML})
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a field on the selected context",
	Long: `Set a configuration field on the context selected by --context
(or the current context).

Keys:
  provider, mode, openai-api-key, gemini-api-key, model, voice,
  lang1, lang2, data-dir,
  archive.dir, archive.s3-bucket, archive.s3-prefix,
  archive.s3-region, archive.s3-endpoint`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := GetConfig()
		if err != nil {
			return err
		}
		ctx, err := cfg.ResolveContext(contextName)
		if err != nil {
			return err
		}

		key, value := args[0], args[1]
		if err := setContextField(ctx, key, value); err != nil {
			return err
		}
		if err := cfg.Save(); err != nil {
			return err
		}
		fmt.Printf("Set %s (context: %s)\n", key, ctx.Name)
		return nil
	},
}

func setContextField(ctx *cli.Context, key, value string) error {
	archive := func() *cli.ArchiveConfig {
		if ctx.Archive == nil {
			ctx.Archive = &cli.ArchiveConfig{}
		}
		return ctx.Archive
	}

	switch key {
	case "provider":
		if value != "openai" && value != "gemini" {
			return fmt.Errorf("provider must be openai or gemini, got %q", value)
		}
		ctx.Provider = value
	case "mode":
		if value != "webrtc" && value != "websocket" {
			return fmt.Errorf("mode must be webrtc or websocket, got %q", value)
		}
		ctx.Mode = value
	case "openai-api-key":
		ctx.OpenAIAPIKey = value
	case "gemini-api-key":
		ctx.GeminiAPIKey = value
	case "model":
		ctx.Model = value
	case "voice":
		ctx.Voice = value
	case "lang1":
		ctx.Language1 = value
	case "lang2":
		ctx.Language2 = value
	case "data-dir":
		ctx.DataDir = value
	case "archive.dir":
		archive().Dir = value
	case "archive.s3-bucket":
		archive().S3Bucket = value
	case "archive.s3-prefix":
		archive().S3Prefix = value
	case "archive.s3-region":
		archive().S3Region = value
	case "archive.s3-endpoint":
		archive().S3Endpoint = value
	default:
		return fmt.Errorf("unknown key %q", key)
	}
	return nil
}

func init() {
	f := configAddContextCmd.Flags()
	f.StringVar(&addContextCtx.Provider, "provider", "", "realtime provider (openai or gemini)")
	f.StringVar(&addContextCtx.Mode, "mode", "", "OpenAI connection mode (webrtc or websocket)")
	f.StringVar(&addContextCtx.OpenAIAPIKey, "openai-api-key", "", "OpenAI API key")
	f.StringVar(&addContextCtx.GeminiAPIKey, "gemini-api-key", "", "Gemini API key")
	f.StringVar(&addContextCtx.Model, "model", "", "realtime model override")
	f.StringVar(&addContextCtx.Voice, "voice", "", "voice override")
	f.StringVar(&addContextCtx.Language1, "lang1", "", "first language (code or id)")
	f.StringVar(&addContextCtx.Language2, "lang2", "", "second language (code or id)")
	f.StringVar(&addContextCtx.DataDir, "data-dir", "", "transcript database directory")

	configCmd.AddCommand(configAddContextCmd)
	configCmd.AddCommand(configDeleteContextCmd)
	configCmd.AddCommand(configUseContextCmd)
	configCmd.AddCommand(configCurrentContextCmd)
	configCmd.AddCommand(configListContextsCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)

	rootCmd.AddCommand(configCmd)
}
