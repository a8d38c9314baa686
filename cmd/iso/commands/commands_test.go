package commands

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// setupTestEnv points ISO_CONFIG at a fresh config file so tests never
// touch the user's ~/.iso.
func setupTestEnv(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	t.Setenv("ISO_CONFIG", path)
	globalConfig = nil
	configLoadErr = nil
	return dir
}

func runCmd(t *testing.T, args ...string) (stdout, stderr string, exitCode int) {
	t.Helper()

	oldStdout := os.Stdout
	oldStderr := os.Stderr

	rOut, wOut, _ := os.Pipe()
	rErr, wErr, _ := os.Pipe()
	os.Stdout = wOut
	os.Stderr = wErr

	verbose = false
	contextName = ""
	configPath = ""
	globalConfig = nil
	configLoadErr = nil

	rootCmd.SetArgs(args)
	err := rootCmd.Execute()

	wOut.Close()
	wErr.Close()
	os.Stdout = oldStdout
	os.Stderr = oldStderr

	var outBuf, errBuf bytes.Buffer
	outBuf.ReadFrom(rOut)
	errBuf.ReadFrom(rErr)

	stdout = outBuf.String()
	stderr = errBuf.String()
	if err != nil {
		exitCode = 1
		if stderr == "" {
			stderr = err.Error()
		}
	}

	resetFlags(rootCmd)
	return
}

func resetFlags(cmd *cobra.Command) {
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		f.Changed = false
		f.Value.Set(f.DefValue)
	})
	for _, sub := range cmd.Commands() {
		resetFlags(sub)
	}
}

func TestVersion(t *testing.T) {
	setupTestEnv(t)

	stdout, _, code := runCmd(t, "version")
	if code != 0 {
		t.Fatalf("exit %d", code)
	}
	if !strings.Contains(stdout, "iso") {
		t.Fatalf("expected 'iso', got: %s", stdout)
	}
}

func TestConfigAddAndList(t *testing.T) {
	setupTestEnv(t)

	stdout, _, code := runCmd(t, "config", "add-context", "dev",
		"--provider", "openai", "--openai-api-key", "sk-12345678abcdefgh",
		"--lang1", "en", "--lang2", "ja")
	if code != 0 {
		t.Fatalf("add-context exit %d: %s", code, stdout)
	}
	// First context becomes current.
	if !strings.Contains(stdout, "Switched to context") {
		t.Fatalf("expected switch message, got: %s", stdout)
	}

	stdout, _, code = runCmd(t, "config", "list-contexts")
	if code != 0 {
		t.Fatalf("list-contexts exit %d", code)
	}
	if !strings.Contains(stdout, "dev") || !strings.Contains(stdout, "en/ja") {
		t.Fatalf("list output: %s", stdout)
	}
	// API keys are masked.
	if strings.Contains(stdout, "sk-12345678abcdefgh") {
		t.Fatalf("list output leaks API key: %s", stdout)
	}
}

func TestConfigAddDuplicate(t *testing.T) {
	setupTestEnv(t)

	runCmd(t, "config", "add-context", "dev")
	_, stderr, code := runCmd(t, "config", "add-context", "dev")
	if code == 0 {
		t.Fatal("expected non-zero exit for duplicate")
	}
	if !strings.Contains(stderr, "already exists") {
		t.Fatalf("expected 'already exists', got: %s", stderr)
	}
}

func TestConfigUseAndCurrent(t *testing.T) {
	setupTestEnv(t)

	runCmd(t, "config", "add-context", "dev")
	runCmd(t, "config", "add-context", "prod")
	_, _, code := runCmd(t, "config", "use-context", "prod")
	if code != 0 {
		t.Fatalf("use-context exit %d", code)
	}

	stdout, _, code := runCmd(t, "config", "current-context")
	if code != 0 {
		t.Fatalf("current-context exit %d", code)
	}
	if !strings.Contains(stdout, "prod") {
		t.Fatalf("expected 'prod', got: %s", stdout)
	}
}

func TestConfigSetAndShow(t *testing.T) {
	setupTestEnv(t)

	runCmd(t, "config", "add-context", "dev")
	_, _, code := runCmd(t, "config", "set", "voice", "marin")
	if code != 0 {
		t.Fatalf("config set exit %d", code)
	}
	_, _, code = runCmd(t, "config", "set", "archive.s3-bucket", "transcripts")
	if code != 0 {
		t.Fatalf("config set exit %d", code)
	}

	stdout, _, code := runCmd(t, "config", "show")
	if code != 0 {
		t.Fatalf("config show exit %d", code)
	}
	if !strings.Contains(stdout, "marin") || !strings.Contains(stdout, "transcripts") {
		t.Fatalf("show output: %s", stdout)
	}
}

func TestConfigSetUnknownKey(t *testing.T) {
	setupTestEnv(t)

	runCmd(t, "config", "add-context", "dev")
	_, stderr, code := runCmd(t, "config", "set", "bogus", "value")
	if code == 0 {
		t.Fatal("expected non-zero exit for unknown key")
	}
	if !strings.Contains(stderr, "unknown key") {
		t.Fatalf("expected 'unknown key', got: %s", stderr)
	}
}

func TestConfigSetValidatesProvider(t *testing.T) {
	setupTestEnv(t)

	runCmd(t, "config", "add-context", "dev")
	_, stderr, code := runCmd(t, "config", "set", "provider", "whisper")
	if code == 0 {
		t.Fatal("expected non-zero exit for bad provider")
	}
	if !strings.Contains(stderr, "provider must be") {
		t.Fatalf("stderr: %s", stderr)
	}
}

func TestLanguagesTable(t *testing.T) {
	setupTestEnv(t)

	stdout, _, code := runCmd(t, "languages")
	if code != 0 {
		t.Fatalf("exit %d", code)
	}
	for _, want := range []string{"CODE", "en", "English", "ja", "日本語"} {
		if !strings.Contains(stdout, want) {
			t.Fatalf("expected %q in output, got: %s", want, stdout)
		}
	}
}

func TestLanguagesJSON(t *testing.T) {
	setupTestEnv(t)

	stdout, _, code := runCmd(t, "languages", "--output", "json")
	if code != 0 {
		t.Fatalf("exit %d", code)
	}
	if !strings.Contains(stdout, `"code": "en"`) {
		t.Fatalf("expected JSON output, got: %s", stdout)
	}
}

func TestTranscriptShowEmpty(t *testing.T) {
	dir := setupTestEnv(t)

	runCmd(t, "config", "add-context", "dev", "--data-dir", filepath.Join(dir, "data"))

	stdout, _, code := runCmd(t, "transcript", "show")
	if code != 0 {
		t.Fatalf("exit %d", code)
	}
	if !strings.Contains(stdout, "Transcript is empty") {
		t.Fatalf("expected empty message, got: %s", stdout)
	}
}

func TestUsageEmpty(t *testing.T) {
	dir := setupTestEnv(t)

	runCmd(t, "config", "add-context", "dev", "--data-dir", filepath.Join(dir, "data"))

	stdout, _, code := runCmd(t, "usage")
	if code != 0 {
		t.Fatalf("exit %d", code)
	}
	if !strings.Contains(stdout, "No usage recorded") {
		t.Fatalf("expected empty message, got: %s", stdout)
	}
}

func TestRunRejectsUnknownProvider(t *testing.T) {
	setupTestEnv(t)

	_, stderr, code := runCmd(t, "run", "--provider", "whisper")
	if code == 0 {
		t.Fatal("expected non-zero exit")
	}
	if !strings.Contains(stderr, "unknown provider") {
		t.Fatalf("stderr: %s", stderr)
	}
}

func TestRunRejectsUnknownLanguage(t *testing.T) {
	setupTestEnv(t)

	_, stderr, code := runCmd(t, "run", "--lang1", "tlh")
	if code == 0 {
		t.Fatal("expected non-zero exit")
	}
	if !strings.Contains(stderr, "unknown language") {
		t.Fatalf("stderr: %s", stderr)
	}
}

func TestRunRequiresAPIKey(t *testing.T) {
	setupTestEnv(t)
	t.Setenv("OPENAI_API_KEY", "")

	_, stderr, code := runCmd(t, "run", "--provider", "openai")
	if code == 0 {
		t.Fatal("expected non-zero exit")
	}
	if !strings.Contains(stderr, "no API key") {
		t.Fatalf("stderr: %s", stderr)
	}
}

func TestEventsFromFile(t *testing.T) {
	dir := setupTestEnv(t)

	logPath := filepath.Join(dir, "session.jsonl")
	lines := strings.Join([]string{
		`{"type":"info_channel_open","event_id":"evt_1","direction":"internal"}`,
		`{"type":"session.update","event_id":"evt_2","direction":"sent","payload":{"session":{"model":"m1"}}}`,
		`{"type":"error_session_start","event_id":"evt_3","direction":"internal"}`,
	}, "\n")
	if err := os.WriteFile(logPath, []byte(lines+"\n"), 0644); err != nil {
		t.Fatal(err)
	}

	stdout, _, code := runCmd(t, "events", logPath)
	if code != 0 {
		t.Fatalf("exit %d", code)
	}
	if got := strings.Count(stdout, "\n"); got != 3 {
		t.Fatalf("expected 3 lines, got %d:\n%s", got, stdout)
	}

	stdout, _, code = runCmd(t, "events", logPath, "--type", "error")
	if code != 0 {
		t.Fatalf("exit %d", code)
	}
	if !strings.Contains(stdout, "error_session_start") || strings.Contains(stdout, "info_channel_open") {
		t.Fatalf("type filter output: %s", stdout)
	}
}

func TestEventsJQ(t *testing.T) {
	dir := setupTestEnv(t)

	logPath := filepath.Join(dir, "session.jsonl")
	lines := strings.Join([]string{
		`{"type":"session.update","direction":"sent","payload":{"session":{"model":"m1"}}}`,
		`{"type":"response.done","direction":"received"}`,
	}, "\n")
	if err := os.WriteFile(logPath, []byte(lines+"\n"), 0644); err != nil {
		t.Fatal(err)
	}

	stdout, _, code := runCmd(t, "events", logPath, "--jq", `select(.direction == "sent") | .type`)
	if code != 0 {
		t.Fatalf("exit %d", code)
	}
	if strings.TrimSpace(stdout) != `"session.update"` {
		t.Fatalf("jq output: %q", stdout)
	}
}

func TestEventsJQInvalidExpression(t *testing.T) {
	dir := setupTestEnv(t)

	logPath := filepath.Join(dir, "session.jsonl")
	if err := os.WriteFile(logPath, []byte(`{"type":"x"}`+"\n"), 0644); err != nil {
		t.Fatal(err)
	}

	_, stderr, code := runCmd(t, "events", logPath, "--jq", "](")
	if code == 0 {
		t.Fatal("expected non-zero exit")
	}
	if !strings.Contains(stderr, "jq") {
		t.Fatalf("stderr: %s", stderr)
	}
}
