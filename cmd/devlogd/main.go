// devlogd: the knowledge-consolidation daemon. Watches per-project session
// buffers, consolidates finished sessions into durable knowledge, sweeps
// stale knowledge for decay, and maintains precomputed catch-up summaries.
//
// Usage:
//
//	devlogd run    # Start the daemon in the foreground
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/dean0x/devlog/internal/catchup"
	"github.com/dean0x/devlog/internal/config"
	"github.com/dean0x/devlog/internal/daemon"
	"github.com/dean0x/devlog/internal/knowledge"
	"github.com/dean0x/devlog/internal/llm"
	"github.com/dean0x/devlog/internal/lock"
	"github.com/dean0x/devlog/internal/notify"
	"github.com/dean0x/devlog/internal/paths"
	"github.com/dean0x/devlog/internal/session"
	"github.com/dean0x/devlog/internal/telemetry"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "run":
		if err := run(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "--help", "-h", "help":
		printUsage()
		os.Exit(0)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load(paths.ConfigFile())
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	var notifier *notify.Broadcaster
	if cfg.NotifyAddr != "" {
		notifier = notify.NewBroadcaster()
		addr, err := notifier.Start(cfg.NotifyAddr)
		if err != nil {
			return fmt.Errorf("starting notify broadcaster: %w", err)
		}
		log.Printf("devlogd: notify broadcaster listening on %s", addr)
	}

	tel, err := telemetry.New()
	if err != nil {
		log.Printf("WARNING: devlogd: telemetry disabled: %v", err)
		tel = nil
	}

	collaborator := llm.NewOllamaClient(cfg.OllamaBaseURL, cfg.OllamaModel)

	d := daemon.New(
		cfg,
		session.NewStore(),
		knowledge.NewStore(),
		catchup.NewStore(),
		lock.New(),
		collaborator,
		notifier,
		tel,
	)

	if err := d.Start(); err != nil {
		return fmt.Errorf("starting daemon: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Printf("devlogd: received shutdown signal, finishing in-flight work")
		cancel()
	}()

	d.Run(ctx)

	if notifier != nil {
		if err := notifier.Stop(); err != nil {
			log.Printf("WARNING: devlogd: stop notify broadcaster: %v", err)
		}
	}
	return d.Stop()
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `devlogd — knowledge-consolidation daemon

Usage:
  devlogd run    Start the daemon in the foreground

Configuration is read from %s, with DEVLOG_OLLAMA_BASE_URL and
DEVLOG_OLLAMA_MODEL environment overrides.
`, paths.ConfigFile())
}
