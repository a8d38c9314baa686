package commands

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/isotranslate/iso/pkg/cli"
	"github.com/isotranslate/iso/pkg/iso"
)

var languagesOutput string

var languagesCmd = &cobra.Command{
	Use:   "languages",
	Short: "List selectable translation languages",
	RunE: func(cmd *cobra.Command, args []string) error {
		if languagesOutput != "" {
			return cli.Output(iso.Languages, cli.OutputOptions{
				Format: cli.OutputFormat(languagesOutput),
			})
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "CODE\tID\tNAME\tNATIVE\tCATEGORY")
		for _, l := range iso.Languages {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", l.Code, l.ID, l.Name, l.Subtitle, l.Category)
		}
		return w.Flush()
	},
}

func init() {
	languagesCmd.Flags().StringVarP(&languagesOutput, "output", "o", "", "output format (json or yaml)")
	rootCmd.AddCommand(languagesCmd)
}
