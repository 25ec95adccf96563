package inspector

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestSummarize(t *testing.T) {
	t.Run("root line and indented files", func(t *testing.T) {
		root := filepath.Join(t.TempDir(), "proj")
		writeFile(t, filepath.Join(root, "app.py"), "print(1)")
		writeFile(t, filepath.Join(root, "src", "util.py"), "")

		s := New().Summarize(root)

		assert.Equal(t, "proj/", s.Lines[0])
		assert.Contains(t, s.Lines, "  app.py")
		assert.Contains(t, s.Lines, "  src/")
		assert.Contains(t, s.Lines, "    util.py")
	})

	t.Run("never exceeds the line cap", func(t *testing.T) {
		root := t.TempDir()
		for d := 0; d < 20; d++ {
			for f := 0; f < 15; f++ {
				writeFile(t, filepath.Join(root, fmt.Sprintf("dir%02d", d), fmt.Sprintf("f%02d.txt", f)), "")
			}
		}
		s := New().Summarize(root)
		assert.Len(t, s.Lines, MaxLines)
	})

	t.Run("at most ten files per directory", func(t *testing.T) {
		root := t.TempDir()
		for f := 0; f < 25; f++ {
			writeFile(t, filepath.Join(root, fmt.Sprintf("f%02d.txt", f)), "")
		}
		s := New().Summarize(root)
		assert.Len(t, s.Lines, 1+MaxFilesPerDir)
	})

	t.Run("excluded directories", func(t *testing.T) {
		root := t.TempDir()
		for _, dir := range []string{"node_modules", "__pycache__", "venv", ".git", ".cache"} {
			writeFile(t, filepath.Join(root, dir, "inside.txt"), "")
		}
		writeFile(t, filepath.Join(root, "keep", "kept.txt"), "")

		out := New().Summarize(root).String()

		assert.NotContains(t, out, "node_modules")
		assert.NotContains(t, out, "__pycache__")
		assert.NotContains(t, out, "venv")
		assert.NotContains(t, out, ".git")
		assert.NotContains(t, out, ".cache")
		assert.NotContains(t, out, "inside.txt")
		assert.Contains(t, out, "kept.txt")
	})

	t.Run("hidden files are listed, hidden dirs are not", func(t *testing.T) {
		root := t.TempDir()
		writeFile(t, filepath.Join(root, ".env"), "")
		out := New().Summarize(root).String()
		assert.Contains(t, out, ".env")
	})

	t.Run("missing root yields empty summary", func(t *testing.T) {
		s := New().Summarize(filepath.Join(t.TempDir(), "nope"))
		assert.Empty(t, s.Lines)
	})

	t.Run("gitignore honored when enabled", func(t *testing.T) {
		root := t.TempDir()
		writeFile(t, filepath.Join(root, ".gitignore"), "build/\n*.log\n")
		writeFile(t, filepath.Join(root, "build", "out.bin"), "")
		writeFile(t, filepath.Join(root, "debug.log"), "")
		writeFile(t, filepath.Join(root, "main.go"), "")

		plain := New().Summarize(root).String()
		assert.Contains(t, plain, "debug.log")

		filtered := New(WithGitignore(true)).Summarize(root).String()
		assert.NotContains(t, filtered, "debug.log")
		assert.NotContains(t, filtered, "out.bin")
		assert.Contains(t, filtered, "main.go")
	})
}

func TestKeyFiles(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "requirements.txt"), "flask==2.3.3\n")
	writeFile(t, filepath.Join(root, "package.json"), strings.Repeat("line\n", 100))
	writeFile(t, filepath.Join(root, "README.md"), "ignored")

	files := New().KeyFiles(root)
	require.Len(t, files, 2)

	byName := map[string]string{}
	for _, f := range files {
		byName[f.Name] = f.Excerpt
	}
	assert.Equal(t, "flask==2.3.3", byName["requirements.txt"])
	assert.Len(t, strings.Split(byName["package.json"], "\n"), keyFileMaxLines)

	desc := New().Describe(root)
	assert.Contains(t, desc, "--- requirements.txt ---")
	assert.NotContains(t, desc, "--- README.md ---")
}
