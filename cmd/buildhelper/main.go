package main

import (
	"context"
	"fmt"
	"os"

	"github.com/YoshitsuguKoike/buildhelper/internal/backends/demo"
	"github.com/YoshitsuguKoike/buildhelper/internal/domain/backend"
	"github.com/YoshitsuguKoike/buildhelper/internal/infra/config"
	"github.com/YoshitsuguKoike/buildhelper/internal/interface/cli"
)

// plugins register additional backends, in order, before any command runs.
var plugins = []func(*backend.Registry){
	demo.Register,
}

func main() {
	os.Exit(run())
}

func run() int {
	settings, err := config.LoadSettings()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	reg := backend.NewRegistry()
	for _, register := range plugins {
		register(reg)
	}

	app := cli.New(cli.Options{Registry: reg, Settings: settings})
	if err := app.Execute(context.Background(), os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return app.ExitCode(err)
	}
	return 0
}
