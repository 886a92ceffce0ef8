// Command podcastforged runs the podcastforge daemon in the foreground. It
// is the entry point for service managers; interactive users normally run
// `podcastforge start` instead.
package main

import (
	"context"
	"errors"
	"log"
	"os"
	"strings"

	"podcastforge/internal/config"
	"podcastforge/internal/daemonrun"
)

// configEnv names the config file when set.
const configEnv = "PODCASTFORGE_CONFIG"

func main() {
	cfg, err := loadConfig(os.Getenv)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	opts := daemonrun.Options{LogLevel: os.Getenv("PODCASTFORGE_LOG_LEVEL")}
	if err := daemonrun.Run(context.Background(), cfg, opts); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatalf("podcastforged: %v", err)
	}
}

func loadConfig(getenv func(string) string) (*config.Config, error) {
	cfg, _, _, err := config.Load(strings.TrimSpace(getenv(configEnv)))
	return cfg, err
}
