// Package mcp parses MCP command flags and runs the story server.
package mcp

import (
	"context"
	"flag"
	"log"
	"time"

	"github.com/louisbranch/taleweave/internal/platform/config"
	"github.com/louisbranch/taleweave/internal/platform/otel"
	"github.com/louisbranch/taleweave/internal/services/mcp/service"
	"github.com/louisbranch/taleweave/internal/services/web"
	"github.com/louisbranch/taleweave/internal/story/store"
)

// Config holds MCP command configuration.
type Config struct {
	ViewerEnabled bool   `env:"TALEWEAVE_VIEWER_ENABLED" envDefault:"false"`
	ViewerAddr    string `env:"TALEWEAVE_VIEWER_ADDR"    envDefault:"localhost:8080"`
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := config.ParseEnv(&cfg); err != nil {
		return Config{}, err
	}

	fs.BoolVar(&cfg.ViewerEnabled, "viewer", cfg.ViewerEnabled, "serve the HTML session viewer")
	fs.StringVar(&cfg.ViewerAddr, "viewer-addr", cfg.ViewerAddr, "session viewer HTTP address")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run starts the MCP protocol adapter and, when enabled, the HTML session
// viewer against the same in-memory session store.
func Run(ctx context.Context, cfg Config) error {
	shutdown, err := otel.Setup(ctx, "mcp")
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil {
			log.Printf("otel shutdown: %v", err)
		}
	}()

	sessions := store.New()
	server, err := service.New(sessions)
	if err != nil {
		return err
	}

	if cfg.ViewerEnabled {
		go func() {
			if err := web.ListenAndServe(ctx, cfg.ViewerAddr, sessions); err != nil {
				log.Printf("session viewer: %v", err)
			}
		}()
	}

	return server.Serve(ctx)
}
