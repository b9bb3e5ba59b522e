package main

import (
	"os"

	"github.com/joho/godotenv"

	"github.com/samoht625/cursor-eng-ctx/cmd/engctx/commands"
)

func main() {
	_ = godotenv.Load() // silently ignore if .env doesn't exist

	if err := commands.NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
