// Package dockerfile extracts Dockerfiles from free-form model output and
// applies the line sanitize pass to generated build files.
package dockerfile

import (
	"regexp"
	"strconv"
	"strings"
)

var keywords = map[string]bool{
	"FROM": true, "RUN": true, "CMD": true, "LABEL": true, "MAINTAINER": true,
	"EXPOSE": true, "ENV": true, "ADD": true, "COPY": true, "ENTRYPOINT": true,
	"VOLUME": true, "USER": true, "WORKDIR": true, "ARG": true, "ONBUILD": true,
	"STOPSIGNAL": true, "HEALTHCHECK": true, "SHELL": true,
}

// Instruction is one logical Dockerfile instruction with continuations joined.
type Instruction struct {
	Keyword string
	Args    string
	// Line is the 1-based line of the instruction in the parsed text.
	Line int
}

func (i Instruction) String() string {
	if i.Args == "" {
		return i.Keyword
	}
	return i.Keyword + " " + i.Args
}

// File is a parsed Dockerfile.
type File struct {
	Instructions []Instruction
}

// Parse tolerates everything a model tends to wrap around a Dockerfile:
// only the first dockerfile fence is read when one is present, and prose,
// blank lines and comments are dropped; lines ending
// in a backslash are joined with the next non-comment line. Only lines that
// start with a known instruction keyword open an instruction.
func Parse(text string) File {
	var f File
	text = ExtractFenced(text, "dockerfile", "docker")
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")

	var cur *Instruction
	var parts []string
	flush := func() {
		if cur == nil {
			return
		}
		cur.Args = strings.Join(parts, " ")
		f.Instructions = append(f.Instructions, *cur)
		cur, parts = nil, nil
	}

	for n, raw := range lines {
		line := strings.TrimSpace(raw)
		if cur != nil {
			// comment and blank lines inside a continuation are skipped, as docker does
			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}
			if strings.HasPrefix(line, "```") {
				flush()
				continue
			}
			body, more := continuation(line)
			if body != "" {
				parts = append(parts, body)
			}
			if !more {
				flush()
			}
			continue
		}

		kw, rest := splitKeyword(line)
		if kw == "" || prose(line, rest) {
			continue
		}
		body, more := continuation(rest)
		if kw == "FROM" && !more && !fromArgs(body) {
			continue
		}
		cur = &Instruction{Keyword: kw, Line: n + 1}
		if body != "" {
			parts = append(parts, body)
		}
		if !more {
			flush()
		}
	}
	flush()
	return f
}

// String renders one instruction per line.
func (f File) String() string {
	var sb strings.Builder
	for _, in := range f.Instructions {
		sb.WriteString(in.String())
		sb.WriteByte('\n')
	}
	return sb.String()
}

// Valid reports whether the file has a FROM before any other build step.
func (f File) Valid() bool {
	for _, in := range f.Instructions {
		switch in.Keyword {
		case "ARG":
			continue
		case "FROM":
			return true
		default:
			return false
		}
	}
	return false
}

// BaseImages returns the image of every FROM instruction.
func (f File) BaseImages() []string {
	var out []string
	for _, in := range f.Instructions {
		if in.Keyword != "FROM" {
			continue
		}
		for _, field := range strings.Fields(in.Args) {
			if strings.HasPrefix(field, "--") {
				continue
			}
			out = append(out, field)
			break
		}
	}
	return out
}

// ExposedPorts returns the ports of every EXPOSE instruction in order.
func (f File) ExposedPorts() []int {
	var out []int
	for _, in := range f.Instructions {
		if in.Keyword != "EXPOSE" {
			continue
		}
		for _, field := range strings.Fields(in.Args) {
			field, _, _ = strings.Cut(field, "/")
			if p, err := strconv.Atoi(field); err == nil && p > 0 && p < 65536 {
				out = append(out, p)
			}
		}
	}
	return out
}

func splitKeyword(line string) (string, string) {
	word, rest, _ := strings.Cut(line, " ")
	if tab := strings.IndexByte(word, '\t'); tab >= 0 {
		word, rest = word[:tab], word[tab+1:]+" "+rest
	}
	kw := strings.ToUpper(word)
	if !keywords[kw] {
		return "", ""
	}
	return kw, strings.TrimSpace(rest)
}

var (
	imageRef  = regexp.MustCompile(`^[A-Za-z0-9$][A-Za-z0-9._/:@${}-]*$`)
	stageName = regexp.MustCompile(`^[A-Za-z0-9$][A-Za-z0-9._${}-]*$`)
)

// fromArgs accepts `[--flag=v ...] image [AS name]`.
func fromArgs(args string) bool {
	fields := strings.Fields(args)
	for len(fields) > 0 && strings.HasPrefix(fields[0], "--") {
		fields = fields[1:]
	}
	switch len(fields) {
	case 1:
		return imageRef.MatchString(fields[0])
	case 3:
		return imageRef.MatchString(fields[0]) && strings.EqualFold(fields[1], "AS") && stageName.MatchString(fields[2])
	}
	return false
}

// Words that follow a sentence-initial keyword in prose ("Run it with ...",
// "Copy the files ...") and never open the arguments of a real instruction.
var proseOpeners = map[string]bool{
	"it": true, "the": true, "this": true, "that": true, "these": true,
	"those": true, "what": true, "your": true, "a": true, "an": true,
	"with": true, "to": true, "them": true, "you": true, "we": true,
	"i": true, "here": true, "there": true, "above": true, "below": true,
	"my": true, "our": true, "all": true,
}

// prose reports whether a keyword line is English text. Upper-case keywords
// are always taken as instructions.
func prose(line, rest string) bool {
	word := strings.Fields(line)[0]
	if word == strings.ToUpper(word) {
		return false
	}
	if first := strings.Fields(rest); len(first) > 0 && proseOpeners[strings.ToLower(strings.TrimRight(first[0], ",:"))] {
		return true
	}
	if rest == "" {
		return false
	}
	titleCase := word != strings.ToLower(word) && word[1:] == strings.ToLower(word[1:])
	return titleCase && strings.ContainsAny(rest[len(rest)-1:], ".!?")
}

func continuation(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if strings.HasSuffix(s, `\`) {
		return strings.TrimSpace(strings.TrimSuffix(s, `\`)), true
	}
	return s, false
}
