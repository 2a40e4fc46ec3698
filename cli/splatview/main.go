// Package main is the splatview command.
package main

import (
	"log"
	"os"

	"go.viam.com/splatview/cli"
)

func main() {
	app := cli.NewApp(os.Stdout, os.Stderr)
	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
