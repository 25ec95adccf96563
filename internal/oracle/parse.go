package oracle

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/shlex"

	"github.com/melih/lighthouse-forge/internal/core/domain"
	"github.com/melih/lighthouse-forge/internal/dockerfile"
)

// ExtractJSON returns the first balanced JSON object embedded in text.
func ExtractJSON(text string) (string, bool) {
	start := strings.IndexByte(text, '{')
	for start >= 0 {
		if end := matchBrace(text[start:]); end > 0 {
			candidate := text[start : start+end]
			if json.Valid([]byte(candidate)) {
				return candidate, true
			}
		}
		next := strings.IndexByte(text[start+1:], '{')
		if next < 0 {
			break
		}
		start += next + 1
	}
	return "", false
}

func matchBrace(s string) int {
	depth := 0
	inString, escaped := false, false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i + 1
			}
		}
	}
	return -1
}

// ParseAnalysis decodes the JSON object of an analysis reply.
func ParseAnalysis(text string) (*domain.ProjectAnalysis, error) {
	raw, ok := ExtractJSON(text)
	if !ok {
		return nil, fmt.Errorf("%w: no JSON object in analysis", domain.ErrUnparseable)
	}
	var a domain.ProjectAnalysis
	if err := json.Unmarshal([]byte(raw), &a); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrUnparseable, err)
	}
	return &a, nil
}

// ParseDockerfile extracts a Dockerfile from a reply. The result must open
// with FROM.
func ParseDockerfile(text string) (string, error) {
	f := dockerfile.Parse(text)
	if !f.Valid() {
		return "", fmt.Errorf("%w: reply contains no Dockerfile", domain.ErrUnparseable)
	}
	return f.String(), nil
}

// ParseRunCommand finds the docker run line of a reply and returns its argv
// with the last token replaced by image. The command is forced to run
// detached under the given container name.
func ParseRunCommand(text, image, container string) ([]string, error) {
	line := runLine(text)
	if line == "" {
		return nil, fmt.Errorf("%w: no docker run command", domain.ErrUnparseable)
	}
	argv, err := shlex.Split(line)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrUnparseable, err)
	}
	if len(argv) < 3 || argv[0] != "docker" || argv[1] != "run" {
		return nil, fmt.Errorf("%w: %q is not a docker run command", domain.ErrUnparseable, line)
	}
	argv[len(argv)-1] = image

	out := []string{"docker", "run"}
	detached := false
	flags := argv[2 : len(argv)-1]
	for i := 0; i < len(flags); i++ {
		f := flags[i]
		switch {
		case f == "--name":
			i++
			continue
		case strings.HasPrefix(f, "--name="):
			continue
		case f == "--rm", f == "-it", f == "-ti", f == "-i", f == "-t":
			continue
		case f == "-d" || f == "--detach":
			detached = true
		}
		out = append(out, f)
	}
	if !detached {
		out = append(out, "-d")
	}
	out = append(out, "--name", container, image)
	return out, nil
}

func runLine(text string) string {
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	for i, l := range lines {
		l = strings.Trim(strings.TrimSpace(l), "`")
		l = strings.TrimSpace(strings.TrimPrefix(l, "$"))
		idx := strings.Index(l, "docker run")
		if idx < 0 {
			continue
		}
		cmd := l[idx:]
		for strings.HasSuffix(cmd, `\`) && i+1 < len(lines) {
			i++
			cmd = strings.TrimSuffix(cmd, `\`) + " " + strings.TrimSpace(lines[i])
		}
		return strings.TrimSpace(strings.Trim(cmd, "`"))
	}
	return ""
}

// PublishedPort returns the host port of the first -p flag of a docker run
// argv, or 0.
func PublishedPort(argv []string) int {
	for i, a := range argv {
		var spec string
		switch {
		case (a == "-p" || a == "--publish") && i+1 < len(argv):
			spec = argv[i+1]
		case strings.HasPrefix(a, "--publish="):
			spec = strings.TrimPrefix(a, "--publish=")
		case strings.HasPrefix(a, "-p") && len(a) > 2:
			spec = a[2:]
		default:
			continue
		}
		spec, _, _ = strings.Cut(spec, "/")
		parts := strings.Split(spec, ":")
		var host string
		switch len(parts) {
		case 2:
			host = parts[0]
		case 3:
			host = parts[1]
		default:
			// a bare container port gets a random host port
			continue
		}
		if p, err := strconv.Atoi(host); err == nil && p > 0 {
			return p
		}
	}
	return 0
}
