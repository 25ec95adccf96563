package main

import (
	"github.com/alecthomas/kong"
)

type Globals struct {
	Config string
}

type Command struct {
	Config   string          `help:"Path of the YAML configuration file." short:"c" default:"config.yml" type:"path"`
	Serve    *ServeCommand    `cmd:"" default:"1" help:"Run the HTTP API."`
	Inspect  *InspectCommand  `cmd:"" help:"Print the structure summary and key files of a directory."`
	Sanitize *SanitizeCommand `cmd:"" help:"Drop blocklisted lines from a Dockerfile in place."`
}

func main() {
	command := new(Command)
	ctx := kong.Parse(
		command,
		kong.Name("forge"),
		kong.Description("Repository analysis and containerization service"),
		kong.UsageOnError(),
	)
	err := ctx.Run(&Globals{Config: command.Config})
	ctx.FatalIfErrorf(err)
}
