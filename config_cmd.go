package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"

	"github.com/charmbracelet/x/editor"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const defaultConfig = `# style name or JSON path (default "auto")
style: "auto"
# mouse support
mouse: false
# word-wrap at width (0 detects the terminal width)
width: 0

# dataset file, URL or directory to open when none is given
dataset: ""
# sentences per chunk (1-100)
chunkSize: 10
# chunk to start on
chunk: 1
# study mode: read or recall
mode: "read"
# playback rate: 0.75, 1, 1.25, 1.5, 1.75 or 2
rate: 1
# loop the current sentence
loop: false
# play the whole chunk on start
continuous: false
# reload the dataset when its file changes
watch: false

# delays between clips
timing:
  # between the source clip and its translation
  gap: "500ms"
  # before the next sentence or loop repeat
  advance: "200ms"
  # past a sentence without audio in continuous play
  skip: "50ms"
  # before continuous play begins
  start: "100ms"

# remote audio clips
audio:
  # limit on remote fetches per minute (0 is unlimited)
  requests_per_minute: 0
  # timeout for one fetch
  timeout: "30s"
  # sentences after the current one whose clips are fetched ahead
  lookahead: 3
  # concurrent fetches ahead of playback
  prefetch_workers: 2

# clip cache
cache:
  # location (default is the user cache directory)
  dir: ""
  # size limit in MB
  max_size: 512
`

var configCmd = &cobra.Command{
	Use:     "config",
	Hidden:  false,
	Short:   "Edit the parrot config file",
	Long:    paragraph(fmt.Sprintf("\n%s the parrot config file. We’ll use EDITOR to determine which editor to use. If the config file doesn't exist, it will be created.", keyword("Edit"))),
	Example: paragraph("parrot config\nparrot config --config path/to/config.yml"),
	Args:    cobra.NoArgs,
	RunE: func(*cobra.Command, []string) error {
		if err := ensureConfigFile(); err != nil {
			return err
		}

		c, err := editor.Cmd("Parrot", configFile)
		if err != nil {
			return fmt.Errorf("unable to set config file: %w", err)
		}
		c.Stdin = os.Stdin
		c.Stdout = os.Stdout
		c.Stderr = os.Stderr
		if err := c.Run(); err != nil {
			return fmt.Errorf("unable to run command: %w", err)
		}

		fmt.Println("Wrote config file to:", configFile)
		return nil
	},
}

func ensureConfigFile() error {
	if configFile == "" {
		configFile = viper.GetViper().ConfigFileUsed()
		if err := os.MkdirAll(filepath.Dir(configFile), 0o755); err != nil { //nolint:gosec
			return fmt.Errorf("could not write configuration file: %w", err)
		}
	}

	if ext := path.Ext(configFile); ext != ".yaml" && ext != ".yml" {
		return fmt.Errorf("'%s' is not a supported configuration type: use '%s' or '%s'", ext, ".yaml", ".yml")
	}

	if _, err := os.Stat(configFile); errors.Is(err, fs.ErrNotExist) {
		// File doesn't exist yet, create all necessary directories and
		// write the default config file
		if err := os.MkdirAll(filepath.Dir(configFile), 0o700); err != nil {
			return fmt.Errorf("unable create directory: %w", err)
		}

		f, err := os.Create(configFile)
		if err != nil {
			return fmt.Errorf("unable to create config file: %w", err)
		}
		defer func() { _ = f.Close() }()

		if _, err := f.WriteString(defaultConfig); err != nil {
			return fmt.Errorf("unable to write config file: %w", err)
		}
	} else if err != nil { // some other error occurred
		return fmt.Errorf("unable to stat config file: %w", err)
	}
	return nil
}
