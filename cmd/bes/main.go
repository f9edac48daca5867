package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"
)

func newApp() *cli.Command {
	g := &globalOptions{}
	return &cli.Command{
		Name:   "bes",
		Usage:  "Decode, validate and export Ptero-Engine BES scene files",
		Flags:  g.flags(),
		Before: g.before,
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return cli.ShowAppHelp(cmd)
		},
		Commands: []*cli.Command{
			inspectCmd(g),
			validateCmd(g),
			exportCmd(g),
			texturesCmd(g),
			catalogCmd(g),
			serveCmd(g),
			versionCmd(),
		},
	}
}

func main() {
	if err := newApp().Run(context.Background(), os.Args); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
