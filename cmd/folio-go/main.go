package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/alecthomas/kong"

	"github.com/AtRiskMedia/folio-go/internal/application/startup"
)

var version = "dev"

// CLI is the top-level command structure for folio-go.
type CLI struct {
	Version kong.VersionFlag `help:"Show version." short:"V"`
	Serve   ServeCmd         `cmd:"" default:"1" help:"Run the content API server."`
	Seed    SeedCmd          `cmd:"" help:"Write the static fallback table into the content store."`
	Fetch   FetchCmd         `cmd:"" help:"Fetch content through the gate and print it as JSON."`
}

// ServeCmd runs the HTTP server until interrupted.
type ServeCmd struct{}

// Run executes the serve command.
func (c *ServeCmd) Run() error {
	return startup.Initialize()
}

// SeedCmd seeds the content store from the fallback table.
type SeedCmd struct {
	Overwrite bool `help:"Replace values already present in the store."`
	Timeout   int  `help:"Timeout in seconds." default:"30"`
}

// Run executes the seed command.
func (c *SeedCmd) Run() error {
	ctx, cancel := commandContext(c.Timeout)
	defer cancel()
	if err := startup.Seed(ctx, c.Overwrite, os.Stdout); err != nil {
		return fmt.Errorf("seed: %w", err)
	}
	return nil
}

// FetchCmd performs one bulk fetch.
type FetchCmd struct {
	Names   []string `arg:"" help:"Content names to fetch."`
	Timeout int      `help:"Timeout in seconds." default:"30"`
}

// Run executes the fetch command.
func (c *FetchCmd) Run() error {
	ctx, cancel := commandContext(c.Timeout)
	defer cancel()
	if err := startup.Fetch(ctx, c.Names, os.Stdout); err != nil {
		return fmt.Errorf("fetch: %w", err)
	}
	return nil
}

func commandContext(timeoutSeconds int) (context.Context, context.CancelFunc) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	ctx, cancel := context.WithTimeout(ctx, time.Duration(timeoutSeconds)*time.Second)
	return ctx, func() {
		cancel()
		stop()
	}
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("folio-go"),
		kong.Description("Portfolio content cache and fetch orchestration service."),
		kong.Vars{"version": version},
	)
	if err := ctx.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %s\n", err)
		os.Exit(1)
	}
}
