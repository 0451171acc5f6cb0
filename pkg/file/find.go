package file

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// FindByPrefix lists regular files directly under dir whose name starts with
// prefix, sorted by name.
func FindByPrefix(dir, prefix string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var ret []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasPrefix(entry.Name(), prefix) {
			continue
		}
		ret = append(ret, filepath.Join(dir, entry.Name()))
	}
	sort.Strings(ret)
	return ret, nil
}
