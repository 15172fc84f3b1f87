package main

import (
	"flag"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/novafield/rewind/internal/infrastructure/config"
	"github.com/novafield/rewind/internal/server"
)

func main() {
	port := flag.String("port", "", "Server port, overrides REWIND_SERVER_PORT")
	target := flag.String("target", ".", "Project directory this instance serves")
	configPath := flag.String("config", "", "Optional TOML config file, or REWIND_CONFIG")
	flag.Parse()

	if *configPath == "" {
		*configPath = os.Getenv("REWIND_CONFIG")
	}

	var cfg *config.Config
	var err error
	if *configPath != "" {
		cfg, err = config.LoadFile(*configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *port != "" {
		cfg.Server.Port = *port
	}

	targetDir, err := absTarget(*target)
	if err != nil {
		log.Fatalf("Invalid target directory: %v", err)
	}

	srv, err := server.New(cfg, targetDir)
	if err != nil {
		log.Fatalf("Failed to create server: %v", err)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	errChan := make(chan error, 1)
	go func() {
		if err := srv.Run(); err != nil {
			errChan <- err
		}
	}()

	select {
	case <-sigChan:
		if err := srv.Close(); err != nil {
			log.Printf("Error during shutdown: %v", err)
		}
	case err := <-errChan:
		log.Fatalf("Server error: %v", err)
	}
}

func absTarget(target string) (string, error) {
	info, err := os.Stat(target)
	if err != nil {
		return "", err
	}
	if !info.IsDir() {
		return "", os.ErrInvalid
	}
	return filepath.Abs(target)
}
