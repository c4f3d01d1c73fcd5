package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/archon-install/archon/internal/cmd"
	"github.com/archon-install/archon/internal/version"
)

func main() {
	app := cli.NewApp()
	app.Name = "archon"
	app.Usage = "opinionated Arch Linux installer"
	app.Version = version.GetVersion()
	app.Authors = []*cli.Author{{Name: "Archon authors"}}
	app.Commands = cmd.Commands

	if err := app.Run(os.Args); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
