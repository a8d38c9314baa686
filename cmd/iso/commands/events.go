package commands

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/itchyny/gojq"
	"github.com/spf13/cobra"

	"github.com/isotranslate/iso/pkg/cli"
)

var (
	eventsJQ     string
	eventsType   string
	eventsLimit  int
	eventsOutput string
)

var eventsCmd = &cobra.Command{
	Use:   "events [file]",
	Short: "Inspect a session event log",
	Long: `Inspect a session event log.

Each 'iso run' writes its normalized event stream to a JSON-lines file
under ~/.iso/logs. Without an argument the most recent log is used.

Events can be filtered by type prefix and transformed with a jq
expression:

  iso events --type error
  iso events --jq '.payload.session.model'
  iso events session-20250901-120000.jsonl --jq 'select(.direction == "sent") | .type'`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := ""
		if len(args) == 1 {
			path = args[0]
		}
		events, path, err := loadEventLog(path)
		if err != nil {
			return err
		}
		cli.PrintVerbose(IsVerbose(), "reading %s", path)

		if eventsType != "" {
			filtered := events[:0]
			for _, ev := range events {
				if typ, _ := ev["type"].(string); strings.HasPrefix(typ, eventsType) {
					filtered = append(filtered, ev)
				}
			}
			events = filtered
		}
		if eventsLimit > 0 && len(events) > eventsLimit {
			events = events[len(events)-eventsLimit:]
		}

		if eventsJQ != "" {
			return runJQ(eventsJQ, events)
		}

		if eventsOutput != "" {
			return cli.Output(events, cli.OutputOptions{
				Format: cli.OutputFormat(eventsOutput),
			})
		}
		for _, ev := range events {
			data, err := json.Marshal(ev)
			if err != nil {
				return err
			}
			fmt.Println(string(data))
		}
		return nil
	},
}

// loadEventLog reads a JSON-lines event log. An empty path selects the
// newest log under ~/.iso/logs.
func loadEventLog(path string) ([]map[string]any, string, error) {
	if path == "" {
		paths, err := cli.NewPaths()
		if err != nil {
			return nil, "", err
		}
		matches, err := filepath.Glob(filepath.Join(paths.LogDir(), "session-*.jsonl"))
		if err != nil {
			return nil, "", err
		}
		if len(matches) == 0 {
			return nil, "", fmt.Errorf("no session logs found in %s", paths.LogDir())
		}
		// Timestamped names sort chronologically.
		sort.Strings(matches)
		path = matches[len(matches)-1]
	} else if !strings.ContainsRune(path, os.PathSeparator) {
		// A bare file name refers to the log directory.
		if paths, err := cli.NewPaths(); err == nil {
			if _, statErr := os.Stat(path); os.IsNotExist(statErr) {
				path = paths.LogPath(path)
			}
		}
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, "", err
	}
	defer f.Close()

	var events []map[string]any
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var ev map[string]any
		if err := json.Unmarshal([]byte(line), &ev); err != nil {
			return nil, "", fmt.Errorf("parse %s: %w", path, err)
		}
		events = append(events, ev)
	}
	if err := scanner.Err(); err != nil {
		return nil, "", err
	}
	return events, path, nil
}

// runJQ applies a jq expression to each event and prints every result
// as a compact JSON line.
func runJQ(expr string, events []map[string]any) error {
	query, err := gojq.Parse(expr)
	if err != nil {
		return fmt.Errorf("parse jq expression: %w", err)
	}
	for _, ev := range events {
		iter := query.Run(map[string]any(ev))
		for {
			v, ok := iter.Next()
			if !ok {
				break
			}
			if err, isErr := v.(error); isErr {
				return fmt.Errorf("jq: %w", err)
			}
			data, err := json.Marshal(v)
			if err != nil {
				return err
			}
			fmt.Println(string(data))
		}
	}
	return nil
}

func init() {
	f := eventsCmd.Flags()
	f.StringVar(&eventsJQ, "jq", "", "jq expression applied to each event")
	f.StringVar(&eventsType, "type", "", "only events whose type has this prefix")
	f.IntVar(&eventsLimit, "limit", 0, "only the last N events")
	f.StringVarP(&eventsOutput, "output", "o", "", "output format (json or yaml)")

	rootCmd.AddCommand(eventsCmd)
}
