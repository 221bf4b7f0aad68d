package thumbnail

import (
	"errors"
	"io/fs"
	"path/filepath"
	"strings"

	"thumbcache/internal/metrics"
)

// GetStats counts the files and bytes in the thumbnail directory. It
// implements metrics.StatsProvider.
func (g *Generator) GetStats() (metrics.Stats, error) {
	var stats metrics.Stats
	err := filepath.WalkDir(g.ThumbPath(), func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			// Files may vanish between listing and stat while requests run.
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		if d.IsDir() || !isThumbnailFile(d.Name()) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		stats.Files++
		stats.Bytes += info.Size()
		return nil
	})
	return stats, err
}

// isThumbnailFile skips index pages and in-flight temporary files.
func isThumbnailFile(name string) bool {
	return name != "index.html" && !strings.HasPrefix(name, ".")
}
