package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/dustin/go-humanize/english"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/dgnsrekt/parrot/internal/cache"
)

var (
	clearCache bool
	pruneCache bool

	cacheCmd = &cobra.Command{
		Use:     "cache",
		Short:   "Show or clear the audio clip cache",
		Long:    paragraph(fmt.Sprintf("\n%s the cache of remote audio clips.", keyword("Inspect"))),
		Example: paragraph("parrot cache\nparrot cache --clear"),
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			dir := viper.GetString("cache.dir")
			if dir == "" {
				d, err := cacheDir()
				if err != nil {
					return err
				}
				dir = d
			}

			m, err := cache.New(cache.Config{
				MemoryCapacity: 1 << 20,
				DiskCapacity:   viper.GetInt64("cache.max_size") << 20,
				Dir:            expandPath(dir),
				MaxAge:         cache.DefaultConfig(dir).MaxAge,
			})
			if err != nil {
				return fmt.Errorf("unable to open clip cache: %w", err)
			}
			defer m.Close() //nolint:errcheck

			out := cmd.OutOrStdout()
			switch {
			case clearCache:
				n := m.Stats().Disk.Items
				if err := m.Clear(); err != nil {
					return fmt.Errorf("unable to clear clip cache: %w", err)
				}
				fmt.Fprintf(out, "Removed %s from %s\n", english.Plural(n, "clip", ""), dir)
				return nil
			case pruneCache:
				n := m.Cleanup()
				days := int(cache.DefaultConfig(dir).MaxAge.Hours() / 24)
				fmt.Fprintf(out, "Removed %s older than %s\n", english.Plural(n, "clip", ""), english.Plural(days, "day", ""))
				return nil
			}

			printCacheStats(cmd, dir, m)
			return nil
		},
	}
)

func printCacheStats(cmd *cobra.Command, dir string, m *cache.Manager) {
	s := m.Stats().Disk
	out := cmd.OutOrStdout()

	fmt.Fprintf(out, "%s %s\n", keyword("Directory:"), dir)
	fmt.Fprintf(out, "%s %s\n", keyword("Clips:"), humanize.Comma(int64(s.Items)))
	fmt.Fprintf(out, "%s %s of %s\n", keyword("Size:"),
		humanize.IBytes(uint64(s.Size)), humanize.IBytes(uint64(s.Capacity))) //nolint:gosec

	entries := m.Entries()
	if len(entries) == 0 {
		return
	}
	newest := entries[len(entries)-1]
	fmt.Fprintf(out, "%s %s\n", keyword("Last used:"), humanize.Time(newest.LastAccess))
}

func init() {
	cacheCmd.Flags().BoolVar(&clearCache, "clear", false, "remove every cached clip")
	cacheCmd.Flags().BoolVar(&pruneCache, "prune", false, "remove expired clips")
	cacheCmd.MarkFlagsMutuallyExclusive("clear", "prune")
}
