package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/pfrederiksen/ffn-meets/internal/cli"
)

func main() {
	// .env.local wins: godotenv never overrides variables already set.
	for _, f := range []string{".env.local", ".env"} {
		if err := godotenv.Load(f); err != nil && !os.IsNotExist(err) {
			fmt.Fprintf(os.Stderr, "Error loading %s: %v\n", f, err)
			os.Exit(cli.ExitError)
		}
	}

	cli.Execute()
}
