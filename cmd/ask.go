package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/qametric/qametric/internal/app"
	"github.com/qametric/qametric/internal/config"
	"github.com/qametric/qametric/internal/log"
	"github.com/qametric/qametric/internal/orchestrator"
)

var (
	askProject string
	askStream  bool
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask a one-shot QA metrics question",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runAsk,
}

func init() {
	askCmd.Flags().StringVar(&askProject, "project", "", "project code to scope the question to")
	askCmd.Flags().BoolVar(&askStream, "stream", false, "print the answer as it is generated")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if cfg.QA.Token == "" {
		fmt.Fprintln(os.Stderr, "Error: QA API token not configured")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Please run:")
		fmt.Fprintln(os.Stderr, "  export QAMETRIC_QA_TOKEN=your-api-token")
		return config.ErrMissingAPIToken
	}

	logger := log.New(log.Config{Level: log.ParseLevel(cfg.LogLevel), JSON: cfg.LogJSON})
	ctx := context.Background()

	a, err := app.Setup(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("initializing application: %w", err)
	}
	defer func() {
		if closeErr := a.Close(); closeErr != nil {
			logger.Warn("shutdown error", "error", closeErr)
		}
	}()

	req := orchestrator.Request{
		UserID:      "cli",
		Token:       cfg.QA.Token,
		Message:     strings.Join(args, " "),
		ProjectCode: askProject,
		Verbose:     cfg.Verbose,
	}

	if askStream {
		return askStreaming(ctx, a, req)
	}

	res := a.Orchestrator.Ask(ctx, req)
	printResult(res)
	return nil
}

func askStreaming(ctx context.Context, a *app.App, req orchestrator.Request) error {
	var failed error
	a.Orchestrator.AskStream(ctx, req, orchestrator.StreamCallbacks{
		OnToken: func(token string) {
			fmt.Print(token)
		},
		OnToolStart: func(name string) {
			fmt.Fprintf(os.Stderr, "[%s...]\n", name)
		},
		OnError: func(message string) {
			failed = fmt.Errorf("%s", message)
		},
		OnDone: func(res *orchestrator.Result) {
			fmt.Println()
			if res.NeedsProjectSelection {
				printResult(res)
			}
		},
	})
	return failed
}

func printResult(res *orchestrator.Result) {
	fmt.Println(res.Response)
	if len(res.ToolsUsed) > 0 {
		fmt.Fprintf(os.Stderr, "\n(tools: %s, %s)\n",
			strings.Join(res.ToolsUsed, ", "), res.Duration.Round(time.Millisecond))
	}
}
