package util

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"unicode"
)

// partialSuffix marks output that is still being written.
const partialSuffix = ".part"

// WriteFileAtomic writes data next to path and renames it into place, so an
// interrupted run never leaves a truncated book behind.
func WriteFileAtomic(path string, data []byte) error {
	tmp := path + partialSuffix
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("rename %s: %w", tmp, err)
	}
	return nil
}

// PartialPath is the scratch file used while producing path.
func PartialPath(path string) string {
	return path + partialSuffix
}

var reUnderscore = regexp.MustCompile(`_+`)

// SafeName turns a book title into a file name stem.
func SafeName(s string) string {
	s = strings.ToLower(s)

	repl := strings.NewReplacer(
		"•", "_",
		"-", "_",
		"—", "_",
		"–", "_",
		"/", "_",
		"\\", "_",
		".", "_",
		" ", "_",
		"(", "",
		")", "",
	)
	s = repl.Replace(s)

	clean := make([]rune, 0, len(s))
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' {
			clean = append(clean, r)
		}
	}
	s = reUnderscore.ReplaceAllString(string(clean), "_")
	s = strings.Trim(s, "_")

	if s == "" {
		return "novel"
	}
	return s
}

// OutputPath joins dir with a safe file name derived from title.
func OutputPath(dir, title, ext string) string {
	return filepath.Join(dir, SafeName(title)+"."+strings.TrimPrefix(ext, "."))
}
