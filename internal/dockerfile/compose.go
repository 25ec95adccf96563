package dockerfile

import (
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

type composeFile struct {
	Services map[string]yaml.Node `yaml:"services"`
}

// ExtractCompose pulls a docker-compose document out of model output and
// returns it with the sorted list of its services. The text must contain a
// YAML mapping with a non-empty services key.
func ExtractCompose(text string) (string, []string, error) {
	body := ExtractFenced(text, "yaml", "yml")
	var doc composeFile
	if err := yaml.Unmarshal([]byte(body), &doc); err != nil {
		return "", nil, fmt.Errorf("compose is not valid yaml: %w", err)
	}
	if len(doc.Services) == 0 {
		return "", nil, fmt.Errorf("compose declares no services")
	}
	services := make([]string, 0, len(doc.Services))
	for name := range doc.Services {
		services = append(services, name)
	}
	sort.Strings(services)
	return strings.TrimSpace(body) + "\n", services, nil
}

// ExtractFenced returns the body of the first markdown code fence whose info
// string is empty or one of langs. Text without fences is returned trimmed.
func ExtractFenced(text string, langs ...string) string {
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	start, skipping := -1, false
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if !strings.HasPrefix(trimmed, "```") {
			continue
		}
		switch {
		case skipping:
			skipping = false
		case start >= 0:
			return strings.Join(lines[start:i], "\n")
		default:
			info := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(trimmed, "```")))
			if info == "" || contains(langs, info) {
				start = i + 1
			} else {
				skipping = true
			}
		}
	}
	if start >= 0 {
		return strings.Join(lines[start:], "\n")
	}
	return strings.TrimSpace(text)
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
