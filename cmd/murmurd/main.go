package main

import (
	"flag"

	"github.com/matheus3301/murmur/internal/daemon"
	"go.uber.org/fx"
)

func main() {
	envFile := flag.String("env-file", "", "dotenv file to load before reading MURMUR_* variables (default .env if present)")
	flag.Parse()

	app := fx.New(
		daemon.Module(daemon.Params{EnvFile: *envFile}),
	)

	app.Run()
}
