package main

import (
	"flag"
	"log"
	"os"

	"github.com/go-gitbridge/gitbridge/internal/bootstrap"
	"github.com/go-gitbridge/gitbridge/internal/config"
	"github.com/go-gitbridge/gitbridge/internal/version"
)

func main() {
	showVersion := flag.Bool("version", false, "Show version information")
	flag.BoolVar(showVersion, "v", false, "Show version information (shorthand)")
	flag.Parse()

	if *showVersion {
		version.PrintVersion()
		os.Exit(0)
	}

	cfg := config.Load()
	if err := bootstrap.Run(cfg); err != nil {
		log.Fatalf("Failed to start: %v", err)
	}
}
