// Package main provides the sagify CLI application, a convenience layer
// over AWS SageMaker for training, deploying and running batch inference.
package main

import (
	"fmt"
	"os"

	"github.com/sagifyml/sagify/internal/cli"
)

func main() {
	app := cli.NewApp()

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(-1)
	}
}
