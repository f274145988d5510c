package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"

	"github.com/mikey/llm-mail-triage/internal/adapters/filter"
	"github.com/mikey/llm-mail-triage/internal/di"
	"github.com/mikey/llm-mail-triage/internal/factory"
	"go.uber.org/zap"
)

func main() {
	flags := di.ParseFlags()

	container, err := di.BuildCLIContainer(flags, os.Stdout)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to build dependency container: %v\n", err)
		os.Exit(1)
	}

	if err := container.Invoke(run); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(
	flags *di.CLIFlags,
	logger *zap.Logger,
	cli *filter.CliFilter,
	llmFactory *factory.LLMFactory,
) error {
	defer logger.Sync()
	defer llmFactory.Close()

	var reader io.Reader = os.Stdin
	if flags.InputFile != "" {
		file, err := os.Open(flags.InputFile)
		if err != nil {
			return fmt.Errorf("failed to open input file: %w", err)
		}
		defer file.Close()
		reader = file
		logger.Info("Reading email from file", zap.String("file", flags.InputFile))
	} else {
		logger.Info("Reading email from stdin")
	}

	email, err := filter.ParseMessage(bufio.NewReader(reader))
	if err != nil {
		return err
	}

	_, err = cli.ProcessEmail(context.Background(), email)
	return err
}
