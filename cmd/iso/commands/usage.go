package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/isotranslate/iso/pkg/cli"
)

var usageOutput string

var usageCmd = &cobra.Command{
	Use:   "usage",
	Short: "Show accumulated token usage and estimated cost",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfgCtx, _ := currentContext()
		store, err := openTranscript(cfgCtx)
		if err != nil {
			return err
		}
		defer store.Close()

		usage, err := store.Usage(cmd.Context())
		if err != nil {
			return err
		}

		if usageOutput != "" {
			result := map[string]any{"usage": usage}
			if usage.TotalTokens > 0 {
				result["estimated_cost"] = usage.Cost()
			}
			return cli.Output(result, cli.OutputOptions{
				Format: cli.OutputFormat(usageOutput),
			})
		}

		for _, line := range usageLines(usage) {
			fmt.Println(line)
		}
		return nil
	},
}

var usageClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Reset the accumulated token usage",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfgCtx, _ := currentContext()
		store, err := openTranscript(cfgCtx)
		if err != nil {
			return err
		}
		defer store.Close()

		if err := store.ClearUsage(cmd.Context()); err != nil {
			return err
		}
		cli.PrintSuccess("Usage cleared.")
		return nil
	},
}

func init() {
	usageCmd.Flags().StringVarP(&usageOutput, "output", "o", "", "output format (json or yaml)")
	usageCmd.AddCommand(usageClearCmd)
	rootCmd.AddCommand(usageCmd)
}
