package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/mikey/llm-mail-triage/internal/caching"
	"github.com/mikey/llm-mail-triage/internal/di"
	"github.com/mikey/llm-mail-triage/internal/factory"
	"github.com/mikey/llm-mail-triage/internal/ports"
	"go.uber.org/zap"
)

func main() {
	container, err := di.BuildContainer()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to build dependency container: %v\n", err)
		os.Exit(1)
	}

	if err := container.Invoke(run); err != nil {
		fmt.Fprintf(os.Stderr, "Application error: %v\n", err)
		os.Exit(1)
	}
}

// run is the main application function that gets all dependencies injected
func run(
	logger *zap.Logger,
	filters []ports.EmailFilter,
	cache *caching.Cache,
	llmFactory *factory.LLMFactory,
) error {
	defer logger.Sync()

	if len(filters) == 0 {
		return fmt.Errorf("no frontend enabled; enable server.http or server.smtp")
	}

	for _, f := range filters {
		if err := f.Start(); err != nil {
			logger.Error("Failed to start frontend", zap.Error(err))
			return err
		}
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	<-sigCh
	logger.Info("Shutting down...")

	for _, f := range filters {
		if err := f.Stop(); err != nil {
			logger.Error("Failed to stop frontend", zap.Error(err))
		}
	}

	if err := llmFactory.Close(); err != nil {
		logger.Error("Failed to close LLM client", zap.Error(err))
	}
	cache.Close()

	logger.Info("Shutdown complete")
	return nil
}
