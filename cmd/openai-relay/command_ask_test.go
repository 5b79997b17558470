package main

import (
	"bytes"
	"errors"
	"fmt"
	"testing"

	"github.com/picatz/openai-relay/internal/responses"
	"github.com/shoenig/test/must"
)

func TestSnippet(t *testing.T) {
	must.Eq(t, "first line", snippet("  first line\nsecond line", 80))
	must.Eq(t, "abcd…", snippet("abcdefgh", 5))
	must.Eq(t, "héllo", snippet("héllo", 5))
}

func TestAskError(t *testing.T) {
	err := askError(fmt.Errorf("failed to create response: %w", &responses.APIError{
		StatusCode: 429,
		Message:    "Rate limit reached",
	}))
	must.EqError(t, err, "Rate limit reached (status 429)")

	plain := errors.New("dial tcp: connection refused")
	must.ErrorIs(t, askError(plain), plain)
}

func TestPrintRetrievedFiles(t *testing.T) {
	score := 0.5

	var buf bytes.Buffer
	printRetrievedFiles(&buf, []responses.RetrievedFile{
		{FileID: "file_1", Filename: "handbook.pdf", Snippet: "Vacation policy\nmore", Score: &score},
		{FileID: "file_2", Filename: "cited.pdf"},
	})
	must.StrContains(t, buf.String(), "handbook.pdf")
	must.StrContains(t, buf.String(), "Vacation policy")
	must.StrNotContains(t, buf.String(), "more")
	must.StrContains(t, buf.String(), "cited.pdf")

	buf.Reset()
	printRetrievedFiles(&buf, nil)
	must.Eq(t, "", buf.String())
}
