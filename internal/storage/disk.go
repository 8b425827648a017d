package storage

import (
	"os"
	"path/filepath"
	"sort"
)

// PathUsage is the on-disk size of one named storage artefact (database, index, cache).
type PathUsage struct {
	Name  string `json:"name"`
	Path  string `json:"path"`
	Bytes int64  `json:"bytes"`
}

// Usage reports the size of each named path, sorted by name, and the total.
func Usage(paths map[string]string) ([]PathUsage, int64, error) {
	names := make([]string, 0, len(paths))
	for name := range paths {
		names = append(names, name)
	}
	sort.Strings(names)

	var total int64
	out := make([]PathUsage, 0, len(names))
	for _, name := range names {
		n, err := DiskUsageBytes(paths[name])
		if err != nil {
			return nil, 0, err
		}
		out = append(out, PathUsage{Name: name, Path: paths[name], Bytes: n})
		total += n
	}
	return out, total, nil
}

// DiskUsageBytes returns the total size in bytes of the given paths. Directories are summed
// recursively; missing or empty paths count as 0. A sqlite database also counts its -wal and
// -shm companions.
func DiskUsageBytes(paths ...string) (int64, error) {
	var total int64
	for _, p := range paths {
		if p == "" || p == ":memory:" {
			continue
		}
		for _, candidate := range []string{p, p + "-wal", p + "-shm"} {
			info, err := os.Stat(candidate)
			if err != nil {
				if os.IsNotExist(err) {
					continue
				}
				return 0, err
			}
			if info.IsDir() {
				n, err := dirSize(candidate)
				if err != nil {
					return 0, err
				}
				total += n
			} else {
				total += info.Size()
			}
		}
	}
	return total, nil
}

func dirSize(dir string) (int64, error) {
	var total int64
	err := filepath.Walk(dir, func(_ string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info != nil && !info.IsDir() {
			total += info.Size()
		}
		return nil
	})
	return total, err
}
