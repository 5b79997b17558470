package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/openai/openai-go/option"
	"github.com/picatz/openai-relay/internal/config"
	"github.com/picatz/openai-relay/internal/logger"
	"github.com/picatz/openai-relay/internal/relay"
	"github.com/picatz/openai-relay/internal/responses"
	"github.com/picatz/openai-relay/internal/vectorstores"
	"github.com/spf13/cobra"
)

var (
	cfg     *config.Config
	slogger *slog.Logger
	svc     *relay.Service
)

// providerAnnotation marks commands that call the provider and therefore
// need configuration, a logger and a relay service before they run.
const providerAnnotation = "openai-relay/provider"

var providerCommand = map[string]string{providerAnnotation: "true"}

var rootCmd = &cobra.Command{
	Use:   "openai-relay",
	Short: "Relay prompts, images and files to the OpenAI Responses API",
	Long: `openai-relay exposes the OpenAI Responses API, file storage and vector
stores to a browser frontend over a small JSON API. It can also send
one-off prompts from the terminal.

Configuration is read from the environment, and from a .env file in the
working directory when one exists. OPENAI_API_KEY is required by every
command that talks to the provider.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Annotations[providerAnnotation] != "true" {
			return nil
		}

		var err error

		cfg, err = config.Load()
		if err != nil {
			return err
		}

		slogger, err = logger.New(os.Stderr, cfg.LogLevel, cfg.LogFormat)
		if err != nil {
			return err
		}
		slog.SetDefault(slogger)

		httpClient := &http.Client{Timeout: cfg.RequestTimeout}

		responsesClient := responses.NewClient(cfg.OpenAIAPIKey, httpClient)
		responsesClient.BaseURL = strings.TrimSuffix(cfg.OpenAIBaseURL, "/")

		vectorStoresClient := vectorstores.NewClient(cfg.OpenAIAPIKey,
			option.WithBaseURL(strings.TrimSuffix(cfg.OpenAIBaseURL, "/")+"/"),
			option.WithHTTPClient(httpClient),
		)

		svc = relay.New(responsesClient, vectorStoresClient, relay.Options{
			DefaultChatModel: cfg.DefaultChatModel,
			DefaultToolModel: cfg.DefaultToolModel,
			TempDir:          cfg.TempDir,
			Logger:           slogger,
		})

		slogger.Debug("configured relay",
			"base_url", cfg.OpenAIBaseURL,
			"chat_model", cfg.DefaultChatModel,
			"tool_model", cfg.DefaultToolModel,
			"temp_dir", cfg.TempDir,
		)

		return nil
	},
}

func checkArgs(n int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if len(args) < n {
			return fmt.Errorf("requires at least %d argument(s), received %d", n, len(args))
		}
		return nil
	}
}
