// Package main implements the voicetask CLI: it runs the extraction pipeline
// on typed text and inspects the task list and event stream.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"voicetask/internal/bootstrap"
	"voicetask/internal/config"
	"voicetask/internal/dto"
	"voicetask/internal/pkg/logger"
	"voicetask/internal/service"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	version = "dev"
	// verbose mirrors service logs to the console
	verbose bool
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "extract [text...]",
	Short: "Extract tasks from typed text and save them",
	Long: `extract sends the given text through the same pipeline as a spoken
utterance: the model extracts tasks, they are appended to the task list and
the summary message is printed.

Examples:
  # Extract tasks from a sentence
  extract "buy milk and call mom tomorrow"

  # Read the text from stdin
  echo "book flights, renew passport" | extract -`,
	Version:       version,
	Args:          cobra.ArbitraryArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runExtract,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Print service logs to the console")
	rootCmd.AddCommand(tasksCmd)
	rootCmd.AddCommand(watchCmd)
}

// withContainer bootstraps the service graph for one command.
func withContainer(cmd *cobra.Command, fn func(c *bootstrap.Container) error, opts ...bootstrap.Option) error {
	cfg := config.Load()

	if !verbose {
		opts = append(opts, bootstrap.WithLogger(logger.NewIsolatedLogger(cfg.App.LogFilePath)))
	}

	c, err := bootstrap.NewContainer(cmd.Context(), cfg, opts...)
	if err != nil {
		color.Red("Failed to start: %v", err)
		return err
	}
	defer c.Close()
	defer func() { _ = c.Logger.Sync() }()

	return fn(c)
}

func runExtract(cmd *cobra.Command, args []string) error {
	text, err := inputText(cmd, args)
	if err != nil {
		color.Red("Failed to read input: %v", err)
		return err
	}

	return withContainer(cmd, func(c *bootstrap.Container) error {
		outcome, err := extractOnce(cmd.Context(), c, text)
		if err != nil {
			color.Red("%s", service.UserMessage(err))
			return err
		}

		color.Green("%s", outcome.Message)
		for _, task := range outcome.Added {
			color.Cyan("  + %s", task.Text)
		}
		color.White("%d task(s) in the list", len(outcome.Tasks))
		return nil
	}, bootstrap.WithBlockingBus())
}

// extractOnce runs one typed extraction with the consumer attached, so the
// outcome is fanned out (and published to NATS when configured) before it
// returns. The container must be built WithBlockingBus.
func extractOnce(ctx context.Context, c *bootstrap.Container, text string) (*dto.PipelineOutcome, error) {
	if err := c.ConsumerService.Consume(ctx); err != nil {
		return nil, fmt.Errorf("start consumer: %w", err)
	}
	return c.PipelineService.Run(ctx, text, service.SourceTyped)
}

func inputText(cmd *cobra.Command, args []string) (string, error) {
	if len(args) == 1 && args[0] == "-" {
		b, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", err
		}
		return string(b), nil
	}
	return strings.Join(args, " "), nil
}
