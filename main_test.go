package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewLoggerWritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pulse.log")
	logger, closeLog := newLogger(path, false)
	logger.Info("loaded audio", "sample_rate", 44100)
	closeLog()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !strings.Contains(string(data), "sample_rate=44100") {
		t.Fatalf("expected log line in file, got %q", data)
	}
}

func TestNewLoggerFallsBackWhenFileUnavailable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "dir", "pulse.log")
	logger, closeLog := newLogger(path, false)
	defer closeLog()
	if logger == nil {
		t.Fatal("expected a logger")
	}
	logger.Info("still works")
}

func TestRunRejectsUnsupportedTrack(t *testing.T) {
	err := run(filepath.Join(t.TempDir(), "absent.json"), "song.aac", "", true)
	if err == nil || !strings.Contains(err.Error(), "unsupported file type") {
		t.Fatalf("expected unsupported file type error, got %v", err)
	}
}

func TestRunRequiresTrack(t *testing.T) {
	if err := run(filepath.Join(t.TempDir(), "absent.json"), "", "", true); err == nil {
		t.Fatal("expected error without a track")
	}
}
