package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Adda-Baaj/khobor-rss/internal/app"
	"github.com/Adda-Baaj/khobor-rss/internal/config"
	"github.com/Adda-Baaj/khobor-rss/internal/logger"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "khobor-rss: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return newRootCommand().ExecuteContext(ctx)
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "khobor-rss",
		Short:         "Turn HTML listing pages into RSS feeds",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.String("log-level", "", "log level (debug, info, warn, error)")
	pf.String("profiles-file", "", "site profile registry (YAML or JSON)")
	pf.String("publishers-file", "", "feed event publisher registry (YAML or JSON)")
	pf.String("user-agent", "", "User-Agent sent to scraped sites")
	pf.Int64("fetch-timeout-seconds", 0, "upstream fetch timeout in seconds")
	pf.String("default-strategy", "", "extraction strategy when a request names none (generic or table)")

	root.AddCommand(newServeCommand(), newRenderCommand())
	return root
}

// bootstrap loads config from the command's flags and starts logging and the service.
func bootstrap(cmd *cobra.Command) (*config.Config, *logger.Zap, *app.Service, error) {
	cfg, err := config.Load(cmd.Flags())
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load config: %w", err)
	}

	log, err := logger.Init(cfg)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("init logger: %w", err)
	}

	svc, err := app.New(cmd.Context(), cfg, log)
	if err != nil {
		log.ErrorObj("failed to initialize service", "error", err)
		_ = log.Sync()
		return nil, nil, nil, err
	}
	return cfg, log, svc, nil
}
