package commands

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/isotranslate/iso/pkg/audio/portaudio"
)

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "List audio input devices",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := portaudio.Initialize(); err != nil {
			return fmt.Errorf("initialize audio: %w", err)
		}
		defer portaudio.Terminate()

		devices, err := portaudio.Devices()
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "DEFAULT\tINDEX\tNAME\tCHANNELS\tSAMPLE RATE")
		count := 0
		for _, d := range devices {
			if d.MaxInputChannels == 0 {
				continue
			}
			count++
			def := ""
			if d.IsDefaultInput {
				def = "*"
			}
			fmt.Fprintf(w, "%s\t%d\t%s\t%d\t%.0f Hz\n",
				def, d.Index, d.Name, d.MaxInputChannels, d.DefaultSampleRate)
		}
		if count == 0 {
			fmt.Println("No input devices found.")
			return nil
		}
		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(devicesCmd)
}
