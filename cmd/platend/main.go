package main

import (
	"context"
	"flag"
	"log"

	"platen/internal/config"
	"platen/internal/daemonrun"
)

func main() {
	configPath := flag.String("config", "", "configuration file path")
	flag.Parse()

	cfg, _, _, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	if err := daemonrun.Run(context.Background(), cfg); err != nil {
		log.Fatalf("platend: %v", err)
	}
}
