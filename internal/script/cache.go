package script

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// Info describes one cached script.
type Info struct {
	Name    string
	Path    string
	ModTime time.Time
	Size    int64
}

// List returns the cached scripts, newest first. A missing cache
// directory yields an empty list.
func List(cacheDir string) ([]Info, error) {
	entries, err := os.ReadDir(cacheDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read cache directory %s: %w", cacheDir, err)
	}

	var infos []Info
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".sh") {
			continue
		}
		fi, err := e.Info()
		if err != nil {
			continue
		}
		infos = append(infos, Info{
			Name:    strings.TrimSuffix(e.Name(), ".sh"),
			Path:    filepath.Join(cacheDir, e.Name()),
			ModTime: fi.ModTime(),
			Size:    fi.Size(),
		})
	}

	sort.Slice(infos, func(i, j int) bool {
		return infos[i].ModTime.After(infos[j].ModTime)
	})

	return infos, nil
}

// Clean removes cached scripts. With all set, every script goes;
// otherwise only scripts older than the retention window are removed.
// Launches never remove scripts implicitly; this is the one cleanup
// path.
func Clean(cacheDir string, retention time.Duration, all bool) ([]string, error) {
	infos, err := List(cacheDir)
	if err != nil {
		return nil, err
	}

	cutoff := time.Now().Add(-retention)

	var removed []string
	for _, info := range infos {
		if !all && info.ModTime.After(cutoff) {
			continue
		}
		if err := os.Remove(info.Path); err != nil {
			return removed, fmt.Errorf("remove %s: %w", info.Path, err)
		}
		removed = append(removed, info.Name)
	}

	return removed, nil
}
