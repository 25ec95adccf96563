package main

import (
	"fmt"
	"os"

	"github.com/melih/lighthouse-forge/internal/dockerfile"
	"github.com/melih/lighthouse-forge/internal/inspector"
)

type InspectCommand struct {
	Path      string `arg:"" help:"Directory to inspect." type:"existingdir"`
	Gitignore bool   `help:"Skip files matched by the root .gitignore."`
}

func (c *InspectCommand) Run() error {
	insp := inspector.New(inspector.WithGitignore(c.Gitignore))
	fmt.Println(insp.Describe(c.Path))
	return nil
}

type SanitizeCommand struct {
	File  string `arg:"" help:"Dockerfile to rewrite." type:"existingfile"`
	Check bool   `help:"Only report whether the file parses, do not rewrite it."`
}

func (c *SanitizeCommand) Run() error {
	if !c.Check {
		if err := dockerfile.SanitizeFile(c.File); err != nil {
			return err
		}
	}
	text, err := os.ReadFile(c.File)
	if err != nil {
		return err
	}
	f := dockerfile.Parse(string(text))
	if !f.Valid() {
		return fmt.Errorf("%s: no FROM instruction", c.File)
	}
	fmt.Printf("base images: %v\nexposed ports: %v\n", f.BaseImages(), f.ExposedPorts())
	return nil
}
