// Command iso is a realtime bilingual speech translator for the
// terminal. It streams microphone audio to a realtime speech model
// (OpenAI Realtime or Gemini Live) and renders a live two-language
// transcript.
package main

import (
	"fmt"
	"os"

	"github.com/isotranslate/iso/cmd/iso/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
