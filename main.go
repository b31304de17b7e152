// Package main provides the entry point for the parrot CLI application.
package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/charmbracelet/glamour/styles"
	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"
	"github.com/mitchellh/go-homedir"
	gap "github.com/muesli/go-app-paths"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"

	"github.com/dgnsrekt/parrot/internal/audio"
	"github.com/dgnsrekt/parrot/internal/cache"
	"github.com/dgnsrekt/parrot/internal/dataset"
	"github.com/dgnsrekt/parrot/internal/navigator"
	"github.com/dgnsrekt/parrot/internal/prefetch"
	"github.com/dgnsrekt/parrot/internal/sequencer"
	"github.com/dgnsrekt/parrot/internal/session"
	"github.com/dgnsrekt/parrot/ui"
)

const appName = "parrot"

// simulatedClipLength is how long a clip lasts with --no-audio.
const simulatedClipLength = 2 * time.Second

var (
	// Version as provided by goreleaser.
	Version = ""
	// CommitSHA as provided by goreleaser.
	CommitSHA = ""

	configFile string
	chunkSize  int
	chunk      int
	modeName   string
	mode       session.Mode
	rate       float64
	loop       bool
	continuous bool
	noAudio    bool
	watch      bool
	style      string
	width      uint
	mouse      bool
	debug      bool

	rootCmd = &cobra.Command{
		Use:   "parrot [DATASET|DIR]",
		Short: "Study sentences by ear, on the CLI.",
		Long: paragraph(
			fmt.Sprintf("\nStudy sentences by ear: %s, then its translation.", keyword("hear each sentence")),
		),
		SilenceErrors:    false,
		SilenceUsage:     true,
		TraverseChildren: true,
		Args:             cobra.MaximumNArgs(1),
		ValidArgsFunction: func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
			return nil, cobra.ShellCompDirectiveDefault
		},
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return validateOptions(cmd)
		},
		RunE: execute,
	}
)

// validateStyle checks if the style is a default style, if not, checks that
// the custom style exists.
func validateStyle(style string) error {
	if style != styles.AutoStyle && styles.DefaultStyles[style] == nil {
		style = expandPath(style)
		if _, err := os.Stat(style); errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("specified style does not exist: %s", style)
		} else if err != nil {
			return fmt.Errorf("unable to stat file: %w", err)
		}
	}
	return nil
}

// configuredTiming reads the timing section. Viper supplies the defaults, so a
// zero here was written by the user and means no delay. UnmarshalKey would
// see a single layer of the nested key.
func configuredTiming() (sequencer.Timing, error) {
	var cfg struct {
		Timing sequencer.Timing `mapstructure:"timing"`
	}
	if err := viper.Unmarshal(&cfg); err != nil {
		return cfg.Timing, fmt.Errorf("invalid timing configuration: %w", err)
	}
	return cfg.Timing.Exact(), nil
}

func validateOptions(cmd *cobra.Command) error {
	// grab config values from Viper
	chunkSize = viper.GetInt("chunkSize")
	chunk = viper.GetInt("chunk")
	modeName = viper.GetString("mode")
	rate = viper.GetFloat64("rate")
	loop = viper.GetBool("loop")
	continuous = viper.GetBool("continuous")
	noAudio = viper.GetBool("noAudio")
	watch = viper.GetBool("watch")
	width = viper.GetUint("width")
	mouse = viper.GetBool("mouse")
	debug = viper.GetBool("debug")

	if debug {
		log.SetLevel(log.DebugLevel)
	}

	if chunkSize < navigator.MinChunkSize || chunkSize > navigator.MaxChunkSize {
		return fmt.Errorf("chunk size must be between %d and %d, got %d",
			navigator.MinChunkSize, navigator.MaxChunkSize, chunkSize)
	}
	if chunk < 1 {
		return fmt.Errorf("chunk must be 1 or greater, got %d", chunk)
	}

	var err error
	if mode, err = session.ParseMode(modeName); err != nil {
		return err
	}
	if err := sequencer.ValidateRate(rate); err != nil {
		return err
	}

	// validate the glamour style
	style = viper.GetString("style")
	if err := validateStyle(style); err != nil {
		return err
	}

	isTerminal := term.IsTerminal(int(os.Stdout.Fd()))

	// Detect terminal width
	if !cmd.Flags().Changed("width") { //nolint:nestif
		if isTerminal && width == 0 {
			w, _, err := term.GetSize(int(os.Stdout.Fd()))
			if err == nil {
				width = uint(w) //nolint:gosec
			}

			if width > 120 {
				width = 120
			}
		}
		if width == 0 {
			width = 80
		}
	}
	return nil
}

func execute(_ *cobra.Command, args []string) error {
	arg := viper.GetString("dataset")
	if len(args) > 0 {
		arg = args[0]
	}
	if arg == "" {
		// use the current working dir if no argument was supplied
		arg = "."
	}

	src, err := dataset.Resolve(arg)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ds, err := dataset.Load(ctx, src)
	if err != nil {
		return err
	}
	return runTUI(ctx, ds)
}

// openDevice returns the playback device, the clip prefetcher and a
// function releasing whatever backs them.
func openDevice(ds *dataset.Dataset) (audio.Device, session.Prefetcher, func(), error) {
	if noAudio {
		dev := audio.NewMockDevice()
		dev.AutoFinish(simulatedClipLength)
		log.Info("audio disabled, simulating playback", "clip_length", simulatedClipLength)
		return dev, nil, func() {}, nil
	}

	dir := viper.GetString("cache.dir")
	if dir == "" {
		d, err := cacheDir()
		if err != nil {
			return nil, nil, nil, err
		}
		dir = d
	}
	cfg := cache.DefaultConfig(expandPath(dir))
	if mb := viper.GetInt64("cache.max_size"); mb > 0 {
		cfg.DiskCapacity = mb << 20
	}
	store, err := cache.New(cfg)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("unable to open clip cache: %w", err)
	}

	fetcher := audio.NewFetcher(audio.FetcherConfig{
		Base:              ds.Base,
		RequestsPerMinute: viper.GetInt("audio.requests_per_minute"),
		Timeout:           viper.GetDuration("audio.timeout"),
		Store:             store,
		Key:               cache.ClipKey,
	})
	queue := prefetch.New(fetcher, prefetch.Options{
		Workers: viper.GetInt("audio.prefetch_workers"),
		Filter: func(src string) bool {
			_, remote := fetcher.Resolve(src)
			return remote
		},
	})
	release := func() {
		_ = queue.Close()
		if err := store.Close(); err != nil {
			log.Warn("unable to close clip cache", "error", err)
		}
	}

	dev, err := audio.NewOtoDevice(fetcher)
	if err != nil {
		release()
		return nil, nil, nil, fmt.Errorf("unable to open audio output (try --no-audio): %w", err)
	}
	return dev, queue, release, nil
}

func runTUI(ctx context.Context, ds *dataset.Dataset) error {
	// Read environment to get debugging stuff
	cfg, err := env.ParseAs[ui.Config]()
	if err != nil {
		return fmt.Errorf("error parsing config: %v", err)
	}

	// use style set in env, or auto if unset
	if err := validateStyle(cfg.GlamourStyle); err != nil {
		cfg.GlamourStyle = style
	}
	if style != styles.AutoStyle {
		cfg.GlamourStyle = style
	}
	cfg.GlamourMaxWidth = width
	cfg.EnableMouse = mouse
	cfg.Source = ds.Source

	timing, err := configuredTiming()
	if err != nil {
		return err
	}

	dev, prefetcher, release, err := openDevice(ds)
	if err != nil {
		return err
	}
	defer release()

	sess, err := session.Open(dev, ds, session.Config{
		ChunkSize: chunkSize,
		Chunk:     chunk - 1,
		Mode:      mode,
		Rate:      rate,
		Looping:   loop,
		Timing:    timing,

		Prefetcher: prefetcher,
		Lookahead:  viper.GetInt("audio.lookahead"),
	})
	if err != nil {
		_ = dev.Close()
		return err
	}
	defer func() {
		if err := sess.Close(); err != nil {
			log.Warn("unable to close session", "error", err)
		}
	}()

	if watch && !dataset.IsURL(ds.Source) {
		go watchDataset(ctx, sess, ds.Source)
	}
	if continuous {
		if err := sess.StartAll(); err != nil && !errors.Is(err, sequencer.ErrEmptyChunk) {
			return err
		}
	}

	// Run Bubble Tea program
	if _, err := ui.NewProgram(cfg, sess).Run(); err != nil {
		return fmt.Errorf("unable to run tui program: %w", err)
	}
	return nil
}

// watchDataset reloads the dataset into sess whenever its file changes.
func watchDataset(ctx context.Context, sess *session.Session, src string) {
	err := dataset.Watch(ctx, src, dataset.DefaultDebounce, func() {
		ds, err := dataset.Load(ctx, src)
		if err != nil {
			log.Warn("unable to reload dataset", "source", src, "error", err)
			return
		}
		if err := sess.ReplaceDataset(ds); err != nil {
			log.Debug("dataset reload dropped", "error", err)
		}
	})
	if err != nil {
		log.Error("unable to watch dataset", "source", src, "error", err)
	}
}

func expandPath(p string) string {
	expanded, err := homedir.Expand(p)
	if err != nil {
		return p
	}
	return expanded
}

func cacheDir() (string, error) {
	dir, err := gap.NewScope(gap.User, appName).CacheDir()
	if err != nil {
		return "", fmt.Errorf("unable to find cache directory: %w", err)
	}
	return filepath.Join(dir, "clips"), nil
}

func loadDotEnv() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Warn("Could not parse .env file", "err", err)
	}
}

func main() {
	loadDotEnv()
	closer, err := setupLog()
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	if err := rootCmd.Execute(); err != nil {
		_ = closer()
		os.Exit(1)
	}
	_ = closer()
}

func init() {
	tryLoadConfigFromDefaultPlaces()
	if len(CommitSHA) >= 7 {
		vt := rootCmd.VersionTemplate()
		rootCmd.SetVersionTemplate(vt[:len(vt)-1] + " (" + CommitSHA[0:7] + ")\n")
	}
	if Version == "" {
		Version = "unknown (built from source)"
	}
	rootCmd.Version = Version
	rootCmd.InitDefaultCompletionCmd()

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", fmt.Sprintf("config file (default %s)", viper.GetViper().ConfigFileUsed()))
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "write debug logs")
	rootCmd.Flags().IntVarP(&chunkSize, "chunk-size", "c", navigator.DefaultChunkSize, "sentences per chunk")
	rootCmd.Flags().IntVarP(&chunk, "chunk", "k", 1, "chunk to start on")
	rootCmd.Flags().StringVarP(&modeName, "mode", "m", session.ModeRead.String(), "study mode (read or recall)")
	rootCmd.Flags().Float64VarP(&rate, "rate", "r", sequencer.DefaultRate, "playback rate (0.75, 1, 1.25, 1.5, 1.75 or 2)")
	rootCmd.Flags().BoolVarP(&loop, "loop", "l", false, "loop the current sentence")
	rootCmd.Flags().BoolVarP(&continuous, "continuous", "a", false, "play the whole chunk on start")
	rootCmd.Flags().BoolVar(&noAudio, "no-audio", false, "simulate playback without an audio device")
	rootCmd.Flags().BoolVarP(&watch, "watch", "W", false, "reload the dataset when its file changes")
	rootCmd.Flags().StringVarP(&style, "style", "s", styles.AutoStyle, "style name or JSON path")
	rootCmd.Flags().UintVarP(&width, "width", "w", 0, "word-wrap at width (set to 0 to detect)")
	rootCmd.Flags().BoolVar(&mouse, "mouse", false, "enable mouse wheel")
	_ = rootCmd.Flags().MarkHidden("mouse")

	// Config bindings
	_ = viper.BindPFlag("chunkSize", rootCmd.Flags().Lookup("chunk-size"))
	_ = viper.BindPFlag("chunk", rootCmd.Flags().Lookup("chunk"))
	_ = viper.BindPFlag("mode", rootCmd.Flags().Lookup("mode"))
	_ = viper.BindPFlag("rate", rootCmd.Flags().Lookup("rate"))
	_ = viper.BindPFlag("loop", rootCmd.Flags().Lookup("loop"))
	_ = viper.BindPFlag("continuous", rootCmd.Flags().Lookup("continuous"))
	_ = viper.BindPFlag("noAudio", rootCmd.Flags().Lookup("no-audio"))
	_ = viper.BindPFlag("watch", rootCmd.Flags().Lookup("watch"))
	_ = viper.BindPFlag("style", rootCmd.Flags().Lookup("style"))
	_ = viper.BindPFlag("width", rootCmd.Flags().Lookup("width"))
	_ = viper.BindPFlag("mouse", rootCmd.Flags().Lookup("mouse"))
	_ = viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))

	viper.SetDefault("style", styles.AutoStyle)
	viper.SetDefault("width", 0)
	viper.SetDefault("chunkSize", navigator.DefaultChunkSize)
	viper.SetDefault("chunk", 1)
	viper.SetDefault("mode", session.ModeRead.String())
	viper.SetDefault("rate", sequencer.DefaultRate)

	// Audio defaults
	def := sequencer.DefaultTiming()
	viper.SetDefault("timing.gap", def.Gap)
	viper.SetDefault("timing.advance", def.Advance)
	viper.SetDefault("timing.skip", def.Skip)
	viper.SetDefault("timing.start", def.Start)
	viper.SetDefault("audio.requests_per_minute", 0)
	viper.SetDefault("audio.timeout", 30*time.Second)
	viper.SetDefault("audio.lookahead", session.DefaultLookahead)
	viper.SetDefault("audio.prefetch_workers", prefetch.DefaultWorkers)
	viper.SetDefault("cache.dir", "")
	viper.SetDefault("cache.max_size", 512)

	rootCmd.AddCommand(configCmd, manCmd, cacheCmd)
}

func tryLoadConfigFromDefaultPlaces() {
	scope := gap.NewScope(gap.User, appName)
	dirs, err := scope.ConfigDirs()
	if err != nil {
		fmt.Println("Could not load find configuration directory.")
		os.Exit(1)
	}

	if c := os.Getenv("XDG_CONFIG_HOME"); c != "" {
		dirs = append([]string{filepath.Join(c, appName)}, dirs...)
	}

	if c := os.Getenv("PARROT_CONFIG_HOME"); c != "" {
		dirs = append([]string{c}, dirs...)
	}

	for _, v := range dirs {
		viper.AddConfigPath(v)
	}

	viper.SetConfigName(appName)
	viper.SetConfigType("yaml")
	viper.SetEnvPrefix(appName)
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Warn("Could not parse configuration file", "err", err)
		}
	}

	if used := viper.ConfigFileUsed(); used != "" {
		log.Debug("Using configuration file", "path", viper.ConfigFileUsed())
		return
	}

	if viper.ConfigFileUsed() == "" {
		configFile = filepath.Join(dirs[0], appName+".yml")
	}
	if err := ensureConfigFile(); err != nil {
		log.Error("Could not create default configuration", "error", err)
	}
}
