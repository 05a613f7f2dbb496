// Package batch reads word lists for checking many words in one run.
package batch

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// Entry is one line of a word list.
type Entry struct {
	Line       int
	Word       string
	Definition string
}

// ReadFile reads the word list at path.
func ReadFile(path string) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read batch file: %w", err)
	}
	defer f.Close()
	return Parse(f)
}

// Parse reads one entry per line. Supported formats:
//   - "ябълка" is the word alone
//   - "ябълка = apple" is the word with its definition
//
// Blank lines and lines starting with '#' are skipped.
func Parse(r io.Reader) ([]Entry, error) {
	var entries []Entry
	sc := bufio.NewScanner(r)
	for n := 1; sc.Scan(); n++ {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		word, def, _ := strings.Cut(line, "=")
		e := Entry{Line: n, Word: strings.TrimSpace(word), Definition: strings.TrimSpace(def)}
		if e.Word == "" {
			return nil, fmt.Errorf("batch line %d: missing word before '='", n)
		}
		entries = append(entries, e)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("failed to read batch file: %w", err)
	}
	return entries, nil
}
