package dockerfile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitize(t *testing.T) {
	t.Run("drops commentary and keeps instructions", func(t *testing.T) {
		in := "# base image\nFROM python:3.11\n```\n- install deps\nRUN pip install flask\n"
		assert.Equal(t, "FROM python:3.11\nRUN pip install flask\n", Sanitize(in))
	})

	t.Run("keeps blank lines and order", func(t *testing.T) {
		in := "FROM a\n\nWORKDIR /app\n  > note\nCMD [\"x\"]"
		assert.Equal(t, "FROM a\n\nWORKDIR /app\nCMD [\"x\"]", Sanitize(in))
	})

	t.Run("every blocklist character", func(t *testing.T) {
		for _, c := range Blocklist {
			assert.Equal(t, "FROM a", Sanitize(string(c)+"x\nFROM a"), "char %q", c)
		}
	})

	t.Run("idempotent", func(t *testing.T) {
		in := "```dockerfile\n# c\nFROM node:18\n\tRUN npm ci\n```\n"
		once := Sanitize(in)
		assert.Equal(t, once, Sanitize(once))
	})
}

func TestSanitizeFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "Dockerfile")
	require.NoError(t, os.WriteFile(path, []byte("# c\nFROM alpine\n"), 0o644))

	require.NoError(t, SanitizeFile(path))
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "FROM alpine\n", string(b))

	assert.Error(t, SanitizeFile(filepath.Join(t.TempDir(), "missing")))
}
