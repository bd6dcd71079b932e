// Package file opens local CSV inputs, decoding them to UTF-8 when they use
// another character set.
package file

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ReadList returns the input paths named in a list file, one per line, in
// order. Blank lines and '#' comments are ignored, a leading UTF-8 BOM is
// dropped, and relative entries are taken relative to the list's directory.
func ReadList(list string) ([]string, error) {
	f, err := os.Open(list)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	base := filepath.Dir(list)
	var paths []string
	sc := bufio.NewScanner(f)
	for n := 1; sc.Scan(); n++ {
		entry := sc.Text()
		if n == 1 {
			entry = strings.TrimPrefix(entry, "\uFEFF")
		}
		entry = strings.TrimSpace(entry)
		switch {
		case entry == "", entry[0] == '#':
			continue
		case filepath.IsAbs(entry):
			paths = append(paths, filepath.Clean(entry))
		default:
			paths = append(paths, filepath.Join(base, entry))
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", list, err)
	}
	return paths, nil
}
