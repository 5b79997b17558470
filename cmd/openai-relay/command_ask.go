package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/picatz/openai-relay/internal/relay"
	"github.com/picatz/openai-relay/internal/responses"
	"github.com/spf13/cobra"
)

func init() {
	askCmd.Flags().String("model", "", "model to use (defaults depend on the request kind)")
	askCmd.Flags().Bool("web-search", false, "let the model search the web")
	askCmd.Flags().String("previous-response-id", "", "continue the conversation after this response")
	askCmd.Flags().String("vector-store", "", "search the files of this vector store")
	askCmd.Flags().Int("max-results", 0, "with --vector-store, the most file search matches to use (1-50)")

	askCmd.MarkFlagsMutuallyExclusive("web-search", "previous-response-id", "vector-store")

	askCmd.Annotations = providerCommand

	rootCmd.AddCommand(askCmd)
}

var askCmd = &cobra.Command{
	Use:   "ask <prompt...>",
	Short: "Send a single prompt and print the rendered answer",
	Example: `  openai-relay ask "What is the capital of France?"
  openai-relay ask --web-search "What happened in tech news today?"
  openai-relay ask --previous-response-id resp_abc123 "And its population?"
  openai-relay ask --vector-store vs_abc123 --max-results 5 "What does the handbook say about vacation?"`,
	Args: checkArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		flags := cmd.Flags()

		model, err := flags.GetString("model")
		if err != nil {
			return err
		}
		webSearch, err := flags.GetBool("web-search")
		if err != nil {
			return err
		}
		previousResponseID, err := flags.GetString("previous-response-id")
		if err != nil {
			return err
		}
		vectorStoreID, err := flags.GetString("vector-store")
		if err != nil {
			return err
		}
		maxResults, err := flags.GetInt("max-results")
		if err != nil {
			return err
		}
		if flags.Changed("max-results") && vectorStoreID == "" {
			return errors.New("--max-results requires --vector-store")
		}

		prompt := strings.Join(args, " ")
		ctx := cmd.Context()
		out := cmd.OutOrStdout()

		var (
			id   string
			text string
		)

		switch {
		case vectorStoreID != "":
			result, err := svc.FileSearch(ctx, relay.FileSearchRequest{
				Prompt:        prompt,
				VectorStoreID: vectorStoreID,
				Model:         model,
				MaxResults:    maxResults,
			})
			if err != nil {
				return askError(err)
			}
			id, text = result.ID, result.Text
			defer printRetrievedFiles(out, result.RetrievedFiles)
		case previousResponseID != "":
			result, err := svc.ContinueConversation(ctx, relay.ContinueRequest{Prompt: prompt, ResponseID: previousResponseID, Model: model})
			if err != nil {
				return askError(err)
			}
			id, text = result.ID, result.Text
		case webSearch:
			result, err := svc.WebSearch(ctx, relay.WebSearchRequest{Prompt: prompt, Model: model})
			if err != nil {
				return askError(err)
			}
			id, text = result.ID, result.Text
		default:
			result, err := svc.SimplePrompt(ctx, relay.PromptRequest{Prompt: prompt, Model: model})
			if err != nil {
				return askError(err)
			}
			id, text = result.ID, result.Text
		}

		if strings.TrimSpace(text) == "" {
			fmt.Fprintln(out, styleWarning.Render("The model returned no text."))
		} else {
			fmt.Fprint(out, renderMarkdown(text, termWidth()))
		}
		fmt.Fprintln(out, styleFaint.Render("response id: "+id))

		return nil
	},
}

// askError makes provider errors read well on a terminal.
func askError(err error) error {
	var apiErr *responses.APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode != 0 {
		return fmt.Errorf("%s (status %d)", apiErr.Error(), apiErr.StatusCode)
	}
	return err
}

func printRetrievedFiles(w io.Writer, files []responses.RetrievedFile) {
	if len(files) == 0 {
		return
	}

	fmt.Fprintln(w, styleBold.Render("Retrieved files"))
	for _, f := range files {
		line := "  " + f.Filename
		if f.Score != nil {
			line += " " + styleScore.Render(fmt.Sprintf("%.2f", *f.Score))
		}
		fmt.Fprintln(w, line)
		if f.Snippet != "" {
			fmt.Fprintln(w, styleFaint.Render("    "+snippet(f.Snippet, 120)))
		}
	}
}

// snippet returns the first line of s, cut to at most n runes.
func snippet(s string, n int) string {
	s, _, _ = strings.Cut(strings.TrimSpace(s), "\n")
	if r := []rune(s); len(r) > n {
		return string(r[:n-1]) + "…"
	}
	return s
}
