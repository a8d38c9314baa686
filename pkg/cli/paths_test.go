package cli

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewPaths(t *testing.T) {
	paths, err := NewPaths()
	if err != nil {
		t.Fatalf("NewPaths error: %v", err)
	}
	if paths.HomeDir == "" {
		t.Error("HomeDir should not be empty")
	}
}

func TestPaths_BaseDir(t *testing.T) {
	tmpDir := t.TempDir()
	paths := &Paths{HomeDir: tmpDir}

	baseDir := paths.BaseDir()
	expected := filepath.Join(tmpDir, DefaultBaseDir)

	if baseDir != expected {
		t.Errorf("BaseDir() = %q, want %q", baseDir, expected)
	}
}

func TestPaths_ConfigFile(t *testing.T) {
	tmpDir := t.TempDir()
	paths := &Paths{HomeDir: tmpDir}

	configFile := paths.ConfigFile()
	expected := filepath.Join(tmpDir, DefaultBaseDir, DefaultConfigFile)

	if configFile != expected {
		t.Errorf("ConfigFile() = %q, want %q", configFile, expected)
	}
}

func TestPaths_SubDirs(t *testing.T) {
	tmpDir := t.TempDir()
	paths := &Paths{HomeDir: tmpDir}

	if !strings.HasSuffix(paths.DataDir(), "data") {
		t.Errorf("DataDir() = %q, should end with 'data'", paths.DataDir())
	}
	if !strings.HasSuffix(paths.LogDir(), "logs") {
		t.Errorf("LogDir() = %q, should end with 'logs'", paths.LogDir())
	}
	if !strings.HasSuffix(paths.ExportDir(), "exports") {
		t.Errorf("ExportDir() = %q, should end with 'exports'", paths.ExportDir())
	}
}

func TestPaths_LogPath(t *testing.T) {
	tmpDir := t.TempDir()
	paths := &Paths{HomeDir: tmpDir}

	logPath := paths.LogPath("session.jsonl")
	expected := filepath.Join(paths.LogDir(), "session.jsonl")

	if logPath != expected {
		t.Errorf("LogPath() = %q, want %q", logPath, expected)
	}
}

func TestPaths_EnsureDirs(t *testing.T) {
	tmpDir := t.TempDir()
	paths := &Paths{HomeDir: tmpDir}

	if err := paths.EnsureDataDir(); err != nil {
		t.Fatalf("EnsureDataDir error: %v", err)
	}
	if err := paths.EnsureLogDir(); err != nil {
		t.Fatalf("EnsureLogDir error: %v", err)
	}

	for _, dir := range []string{paths.DataDir(), paths.LogDir()} {
		info, err := os.Stat(dir)
		if err != nil {
			t.Fatalf("%s not created: %v", dir, err)
		}
		if !info.IsDir() {
			t.Errorf("%s should be a directory", dir)
		}
	}
}
