package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/charmbracelet/log"
	gap "github.com/muesli/go-app-paths"
)

func getLogFilePath() (string, error) {
	dir, err := gap.NewScope(gap.User, appName).CacheDir()
	if err != nil {
		return "", fmt.Errorf("unable to find cache directory: %w", err)
	}
	return filepath.Join(dir, appName+".log"), nil
}

// setupLog sends log output to a file in the user cache directory, leaving
// the terminal to the TUI. Only warnings and errors are kept unless
// PARROT_DEBUG is set or --debug is passed.
func setupLog() (func() error, error) {
	log.SetOutput(io.Discard)
	log.SetLevel(log.WarnLevel)

	logFile, err := getLogFilePath()
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(logFile), 0o755); err != nil { //nolint:gosec
		// log disabled
		return func() error { return nil }, nil
	}
	f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644) //nolint:gosec
	if err != nil {
		// log disabled
		return func() error { return nil }, nil
	}
	log.SetOutput(f)
	log.SetReportTimestamp(true)
	if on, _ := strconv.ParseBool(os.Getenv("PARROT_DEBUG")); on {
		log.SetLevel(log.DebugLevel)
	}
	return f.Close, nil
}
