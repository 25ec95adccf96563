package dockerfile

import (
	"fmt"
	"os"
	"strings"
)

// Blocklist holds the leading characters that mark a line as commentary,
// markdown or shell noise rather than a Dockerfile instruction.
const Blocklist = "`#*-+><!@$%^&()[]{}|\\/?~"

// Sanitize drops every line whose trimmed form starts with a Blocklist
// character. Blank lines and line order are preserved.
func Sanitize(text string) string {
	lines := strings.Split(text, "\n")
	kept := lines[:0:0]
	for _, line := range lines {
		if Blocked(line) {
			continue
		}
		kept = append(kept, line)
	}
	return strings.Join(kept, "\n")
}

// Blocked reports whether Sanitize would drop line.
func Blocked(line string) bool {
	trimmed := strings.TrimSpace(line)
	return trimmed != "" && strings.ContainsRune(Blocklist, rune(trimmed[0]))
}

// SanitizeFile applies Sanitize to the file at path in place.
func SanitizeFile(path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if err := os.WriteFile(path, []byte(Sanitize(string(b))), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
