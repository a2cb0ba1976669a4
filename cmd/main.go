package main

import (
	"fmt"
	"os"

	"github.com/ostafen/zipsniff/cmd/cmd"
	"github.com/ostafen/zipsniff/internal/env"
)

func main() {
	PrintLogo()

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func PrintLogo() {
	fmt.Fprintln(os.Stderr, "       _                  _  __  __ ")
	fmt.Fprintln(os.Stderr, "  ____(_)_ __  ___ _ __ (_)/ _|/ _|")
	fmt.Fprintln(os.Stderr, " |_  /| | '_ \\/ __| '_ \\| | |_| |_ ")
	fmt.Fprintln(os.Stderr, "  / / | | |_) \\__ \\ | | | |  _|  _|")
	fmt.Fprintln(os.Stderr, " /___||_| .__/|___/_| |_|_|_| |_|  ")
	fmt.Fprintln(os.Stderr, "        |_|                         ")
	fmt.Fprintln(os.Stderr)
	fmt.Fprintln(os.Stderr, "ZIP container media type detection")
	fmt.Fprintln(os.Stderr)
	fmt.Fprintf(os.Stderr, "Version:   %s\n", env.Version)
	fmt.Fprintf(os.Stderr, "Commit:    %s\n", env.CommitHash)
	fmt.Fprintf(os.Stderr, "Build Time: %s\n", env.BuildTime)
	fmt.Fprintln(os.Stderr, " ")
}
