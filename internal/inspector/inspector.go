// Package inspector summarizes a source tree for the inference oracle.
package inspector

import (
	"os"
	"path/filepath"
	"strings"

	ignore "github.com/sabhiram/go-gitignore"
)

const (
	MaxFilesPerDir = 10
	MaxLines       = 50

	keyFileMaxLines = 40
	keyFileMaxBytes = 2048
)

var excludedDirs = map[string]bool{
	"node_modules": true,
	"__pycache__":  true,
	"venv":         true,
}

// KeyFileNames are read from the project root when present.
var KeyFileNames = []string{
	"package.json",
	"requirements.txt",
	"pyproject.toml",
	"Pipfile",
	"go.mod",
	"pom.xml",
	"build.gradle",
	"Gemfile",
	"Cargo.toml",
	"composer.json",
	"Dockerfile",
	"docker-compose.yml",
	"main.py",
	"app.py",
	"index.js",
	"server.js",
	"main.go",
}

// Summary is a truncated, indented directory listing.
type Summary struct {
	Lines []string
}

func (s Summary) String() string {
	return strings.Join(s.Lines, "\n")
}

// KeyFile is an excerpt of one of KeyFileNames.
type KeyFile struct {
	Name    string `json:"name"`
	Excerpt string `json:"excerpt"`
}

type Inspector struct {
	respectGitignore bool
}

type Option func(*Inspector)

// WithGitignore additionally skips paths matched by the root .gitignore.
func WithGitignore(enabled bool) Option {
	return func(i *Inspector) { i.respectGitignore = enabled }
}

func New(opts ...Option) *Inspector {
	i := &Inspector{}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Summarize walks root top-down in directory order. Each directory contributes
// its own line and up to MaxFilesPerDir file lines; the result is capped at
// MaxLines. Unreadable directories are skipped.
func (i *Inspector) Summarize(root string) Summary {
	root = filepath.Clean(root)
	var matcher *ignore.GitIgnore
	if i.respectGitignore {
		matcher = loadGitignore(root)
	}

	var lines []string
	var walk func(dir string, level int)
	walk = func(dir string, level int) {
		if len(lines) >= MaxLines {
			return
		}
		entries, err := readDirUnsorted(dir)
		if err != nil {
			return
		}
		lines = append(lines, strings.Repeat(" ", 2*level)+filepath.Base(dir)+"/")

		var subdirs []string
		files := 0
		indent := strings.Repeat(" ", 2*(level+1))
		for _, e := range entries {
			rel := relPath(root, filepath.Join(dir, e.Name()))
			if e.IsDir() {
				if skipDir(e.Name()) || ignored(matcher, rel+"/") {
					continue
				}
				subdirs = append(subdirs, filepath.Join(dir, e.Name()))
				continue
			}
			if ignored(matcher, rel) {
				continue
			}
			if files < MaxFilesPerDir {
				lines = append(lines, indent+e.Name())
			}
			files++
		}
		for _, sub := range subdirs {
			walk(sub, level+1)
		}
	}
	walk(root, 0)

	if len(lines) > MaxLines {
		lines = lines[:MaxLines]
	}
	return Summary{Lines: lines}
}

// KeyFiles returns excerpts of the key files found at the project root.
func (i *Inspector) KeyFiles(root string) []KeyFile {
	var out []KeyFile
	for _, name := range KeyFileNames {
		b, err := os.ReadFile(filepath.Join(root, name))
		if err != nil {
			continue
		}
		out = append(out, KeyFile{Name: name, Excerpt: excerpt(string(b))})
	}
	return out
}

// Describe renders the structure summary followed by key file excerpts.
func (i *Inspector) Describe(root string) string {
	var sb strings.Builder
	sb.WriteString(i.Summarize(root).String())
	for _, kf := range i.KeyFiles(root) {
		sb.WriteString("\n\n--- ")
		sb.WriteString(kf.Name)
		sb.WriteString(" ---\n")
		sb.WriteString(kf.Excerpt)
	}
	return sb.String()
}

func skipDir(name string) bool {
	return strings.HasPrefix(name, ".") || excludedDirs[name]
}

// readDirUnsorted keeps the operating system's directory order, unlike os.ReadDir.
func readDirUnsorted(dir string) ([]os.DirEntry, error) {
	f, err := os.Open(dir)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return f.ReadDir(-1)
}

func loadGitignore(root string) *ignore.GitIgnore {
	b, err := os.ReadFile(filepath.Join(root, ".gitignore"))
	if err != nil {
		return nil
	}
	return ignore.CompileIgnoreLines(strings.Split(string(b), "\n")...)
}

func ignored(m *ignore.GitIgnore, rel string) bool {
	return m != nil && m.MatchesPath(rel)
}

func relPath(root, path string) string {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return path
	}
	return filepath.ToSlash(rel)
}

func excerpt(s string) string {
	if len(s) > keyFileMaxBytes {
		s = s[:keyFileMaxBytes]
	}
	lines := strings.Split(s, "\n")
	if len(lines) > keyFileMaxLines {
		lines = lines[:keyFileMaxLines]
	}
	return strings.TrimRight(strings.Join(lines, "\n"), "\n")
}
