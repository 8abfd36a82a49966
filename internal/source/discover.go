package source

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
)

// ErrNoSource is returned when no log source could be selected.
var ErrNoSource = errors.New("no log source found")

// Latest returns the path of the newest log in dir. Names are compared in
// descending lexicographic order, which matches date-stamped rotation names such
// as access.log-20240315.gz. Only regular files are considered, and only those
// matching pattern when it is non-nil.
func Latest(dir string, pattern *regexp.Regexp) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("%w: cannot read log dir %s: %v", ErrNoSource, dir, err)
	}

	var names []string
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		if pattern != nil && !pattern.MatchString(e.Name()) {
			continue
		}
		names = append(names, e.Name())
	}
	if len(names) == 0 {
		return "", fmt.Errorf("%w in %s", ErrNoSource, dir)
	}

	sort.Sort(sort.Reverse(sort.StringSlice(names)))
	return filepath.Join(dir, names[0]), nil
}

// Discover expands the given paths into a sorted list of log files.
// Files are taken as given; directories are walked recursively for log-like names.
func Discover(paths []string) ([]string, error) {
	var files []string
	seen := make(map[string]bool)

	add := func(path string) {
		abs, err := filepath.Abs(path)
		if err != nil {
			abs = path
		}
		if !seen[abs] {
			seen[abs] = true
			files = append(files, path)
		}
	}

	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, fmt.Errorf("cannot access %s: %w", p, err)
		}

		if !info.IsDir() {
			add(p)
			continue
		}

		err = filepath.WalkDir(p, func(path string, d os.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				return nil
			}
			if isLogFile(path) {
				add(path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("error walking directory %s: %w", p, err)
		}
	}

	sort.Strings(files)
	return files, nil
}

func isLogFile(path string) bool {
	name := strings.ToLower(filepath.Base(path))
	if strings.HasPrefix(name, ".") {
		return false
	}
	name = strings.TrimSuffix(name, ".gz")

	switch filepath.Ext(name) {
	case ".log", ".txt":
		return true
	}
	// Rotated names: access.log-20240315, access.log.1
	return strings.Contains(name, ".log") || strings.Contains(name, "access")
}
