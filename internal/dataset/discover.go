package dataset

import (
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/charmbracelet/log"
	"github.com/muesli/gitcha"
)

// ErrNoDatasets is returned when a directory holds no dataset files.
var ErrNoDatasets = errors.New("no dataset files found")

// File is a dataset file found on disk.
type File struct {
	Path string
	Size int64
}

// Discover finds dataset files under dir. Files ignored by git are skipped
// unless all is set. Results are ordered by path.
func Discover(dir string, all bool) ([]File, error) {
	dir = ExpandPath(dir)

	var (
		ch  chan gitcha.SearchResult
		err error
	)
	if all {
		ch, err = gitcha.FindAllFilesExcept(dir, Extensions, nil)
	} else {
		ch, err = gitcha.FindFilesExcept(dir, Extensions, nil)
	}
	if err != nil {
		return nil, fmt.Errorf("unable to search %s: %w", dir, err)
	}

	var files []File
	for res := range ch {
		files = append(files, File{Path: res.Path, Size: res.Info.Size()})
	}
	if len(files) == 0 {
		return nil, ErrNoDatasets
	}

	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
	log.Debug("datasets discovered", "dir", dir, "count", len(files))
	return files, nil
}

// Resolve turns a command line argument into a dataset source. Directories
// resolve to the first dataset file inside them; URLs and files pass through.
func Resolve(arg string) (string, error) {
	if IsURL(arg) {
		return arg, nil
	}
	p := ExpandPath(arg)
	st, err := os.Stat(p)
	if err != nil {
		return "", fmt.Errorf("unable to stat %s: %w", arg, err)
	}
	if !st.IsDir() {
		return p, nil
	}
	files, err := Discover(p, true)
	if err != nil {
		return "", err
	}
	return files[0].Path, nil
}
