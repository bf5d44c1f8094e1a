// Package catalog provides the preloaded mantra titles offered by `mantra preload`.
package catalog

import (
	"bufio"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

//go:embed mantras.txt
var defaultTitles string

// ErrUnknownTitle is returned when a requested title is not in the catalog.
var ErrUnknownTitle = errors.New("title not in catalog")

// Default returns the built-in titles.
func Default() []string {
	titles, err := parseTitles(strings.NewReader(defaultTitles))
	if err != nil {
		return nil
	}
	return titles
}

// LoadTitles reads one title per line from the provided file path.
func LoadTitles(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := file.Close(); cerr != nil {
			// Best-effort close for read-only title list.
			_ = cerr
		}
	}()

	titles, err := parseTitles(file)
	if err != nil {
		return nil, err
	}
	if len(titles) == 0 {
		return nil, fmt.Errorf("title list %s is empty", path)
	}
	return titles, nil
}

// parseTitles skips blank lines and lines starting with '#'.
func parseTitles(r io.Reader) ([]string, error) {
	var titles []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		titles = append(titles, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return titles, nil
}

// Select returns the catalog entries matching names case-insensitively, in the
// order of names.
func Select(titles, names []string) ([]string, error) {
	index := make(map[string]string, len(titles))
	for _, t := range titles {
		index[normalize(t)] = t
	}
	out := make([]string, 0, len(names))
	for _, name := range names {
		t, ok := index[normalize(name)]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownTitle, name)
		}
		out = append(out, t)
	}
	return out, nil
}
