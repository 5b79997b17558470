// Package relay forwards prompts, images and files to the OpenAI responses,
// files and vector store APIs, and reshapes the results for a frontend.
//
// The Service holds no state between calls besides its dependencies; the only
// identifiers that outlive a call (response IDs and vector store IDs) are
// issued by the provider and passed through verbatim.
package relay

import (
	"cmp"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/picatz/openai-relay/internal/responses"
	"github.com/picatz/openai-relay/internal/vectorstores"
)

// ErrInvalidRequest is wrapped by every error caused by a malformed request
// rather than by the provider or the local filesystem.
var ErrInvalidRequest = errors.New("invalid request")

func invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidRequest, fmt.Sprintf(format, args...))
}

// ResponsesAPI creates model responses.
type ResponsesAPI interface {
	Create(ctx context.Context, req responses.Request) (*responses.Response, error)
}

// VectorStoreAPI manages provider side files and vector stores.
type VectorStoreAPI interface {
	CreateVectorStore(ctx context.Context, name string) (*vectorstores.VectorStore, error)
	UploadFile(ctx context.Context, filename string, r io.Reader, contentType string) (*vectorstores.File, error)
	AttachFile(ctx context.Context, vectorStoreID, fileID string) (*vectorstores.VectorStoreFile, error)
}

// DefaultVectorStoreName is used when a vector store is created without a name.
const DefaultVectorStoreName = "responses-relay-store"

// Options configure a Service. Zero values fall back to the defaults noted
// on each field.
type Options struct {
	// DefaultChatModel is used by plain prompts and conversations (default "gpt-4o-mini").
	DefaultChatModel string

	// DefaultToolModel is used by requests that attach tools or images (default "gpt-4o").
	DefaultToolModel string

	// TempDir holds uploads while they are forwarded (default os.TempDir()).
	TempDir string

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Service relays requests to the provider.
type Service struct {
	responses    ResponsesAPI
	vectorStores VectorStoreAPI

	chatModel string
	toolModel string
	tempDir   string
	logger    *slog.Logger
}

// New returns a Service using the given provider APIs.
func New(responsesAPI ResponsesAPI, vectorStoreAPI VectorStoreAPI, opts Options) *Service {
	return &Service{
		responses:    responsesAPI,
		vectorStores: vectorStoreAPI,
		chatModel:    cmp.Or(opts.DefaultChatModel, "gpt-4o-mini"),
		toolModel:    cmp.Or(opts.DefaultToolModel, "gpt-4o"),
		tempDir:      cmp.Or(opts.TempDir, os.TempDir()),
		logger:       cmp.Or(opts.Logger, slog.Default()),
	}
}

type PromptRequest struct {
	Prompt string `json:"prompt"`
	Model  string `json:"model"`
}

type ContinueRequest struct {
	Prompt     string `json:"prompt"`
	ResponseID string `json:"response_id"`
	Model      string `json:"model"`
}

type WebSearchRequest struct {
	Prompt string `json:"prompt"`
	Model  string `json:"model"`
}

type MultimodalRequest struct {
	Prompt       string `json:"prompt"`
	ImageURL     string `json:"image_url"`
	Model        string `json:"model"`
	UseWebSearch bool   `json:"use_web_search"`
}

type VectorStoreRequest struct {
	Name string `json:"name"`
}

type FileSearchRequest struct {
	Prompt        string `json:"prompt"`
	VectorStoreID string `json:"vector_store_id"`
	Model         string `json:"model"`

	// MaxResults caps the number of matched chunks, 1 to 50. Zero leaves the
	// provider default.
	MaxResults int `json:"max_results"`
}

// MaxFileSearchResults is the largest accepted FileSearchRequest.MaxResults.
const MaxFileSearchResults = 50

// TextResult is returned by plain prompts and conversations.
type TextResult struct {
	ID           string          `json:"id"`
	Text         string          `json:"text"`
	FullResponse json.RawMessage `json:"full_response"`
}

type WebSearchResult struct {
	ID               string          `json:"id"`
	Text             string          `json:"text"`
	WebSearchResults []any           `json:"web_search_results"`
	FullResponse     json.RawMessage `json:"full_response"`
}

type MultimodalResult struct {
	ID           string                 `json:"id"`
	Text         string                 `json:"text"`
	Annotations  []responses.Annotation `json:"annotations"`
	FullResponse json.RawMessage        `json:"full_response"`
}

type FileSearchResult struct {
	ID             string                    `json:"id"`
	Text           string                    `json:"text"`
	RetrievedFiles []responses.RetrievedFile `json:"retrieved_files"`
}

type VectorStoreResult struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	CreatedAt int64  `json:"created_at"`
}

type EncodedImage struct {
	Filename string `json:"filename"`
	Base64   string `json:"base64"`
}

func requirePrompt(prompt string) error {
	if strings.TrimSpace(prompt) == "" {
		return invalidf("prompt is required")
	}
	return nil
}

// create sends req and extracts the output. Unrecognized output is logged,
// not reported to the caller.
func (s *Service) create(ctx context.Context, op string, req responses.Request) (*responses.Response, responses.Extraction, error) {
	s.logger.DebugContext(ctx, "creating response",
		"op", op,
		"model", req.Model,
		"tools", len(req.Tools),
		"previous_response_id", req.PreviousResponseID,
	)

	resp, err := s.responses.Create(ctx, req)
	if err != nil {
		return nil, responses.Extraction{}, fmt.Errorf("failed to create response: %w", err)
	}

	ext := responses.Extract(resp)
	if ext.Skipped > 0 {
		s.logger.DebugContext(ctx, "skipped unrecognized output",
			"op", op,
			"response_id", resp.ID,
			"skipped", ext.Skipped,
		)
	}

	return resp, ext, nil
}

// SimplePrompt sends a single text prompt with no tools.
func (s *Service) SimplePrompt(ctx context.Context, req PromptRequest) (*TextResult, error) {
	if err := requirePrompt(req.Prompt); err != nil {
		return nil, err
	}

	resp, ext, err := s.create(ctx, "simple_prompt", responses.Request{
		Model: cmp.Or(req.Model, s.chatModel),
		Input: responses.Text(req.Prompt),
	})
	if err != nil {
		return nil, err
	}

	return &TextResult{
		ID:           resp.ID,
		Text:         ext.Text,
		FullResponse: resp.FullResponse(),
	}, nil
}

// ContinueConversation sends a prompt as the next turn after the response
// identified by req.ResponseID.
func (s *Service) ContinueConversation(ctx context.Context, req ContinueRequest) (*TextResult, error) {
	if err := requirePrompt(req.Prompt); err != nil {
		return nil, err
	}
	if req.ResponseID == "" {
		return nil, invalidf("response_id is required")
	}

	resp, ext, err := s.create(ctx, "continue_conversation", responses.Request{
		Model:              cmp.Or(req.Model, s.chatModel),
		Input:              responses.Text(req.Prompt),
		PreviousResponseID: req.ResponseID,
	})
	if err != nil {
		return nil, err
	}

	return &TextResult{
		ID:           resp.ID,
		Text:         ext.Text,
		FullResponse: resp.FullResponse(),
	}, nil
}

// WebSearch sends a prompt with the web search tool attached.
func (s *Service) WebSearch(ctx context.Context, req WebSearchRequest) (*WebSearchResult, error) {
	if err := requirePrompt(req.Prompt); err != nil {
		return nil, err
	}

	resp, ext, err := s.create(ctx, "web_search", responses.Request{
		Model: cmp.Or(req.Model, s.toolModel),
		Input: responses.Text(req.Prompt),
		Tools: responses.RequestTools{
			responses.RequestToolWebSearch{},
		},
	})
	if err != nil {
		return nil, err
	}

	return &WebSearchResult{
		ID:               resp.ID,
		Text:             ext.Text,
		WebSearchResults: ext.WebSearchResults,
		FullResponse:     resp.FullResponse(),
	}, nil
}

// Multimodal sends a prompt together with an image, given either as a URL or
// as a base64 data URL. The web search tool is attached only when requested.
func (s *Service) Multimodal(ctx context.Context, req MultimodalRequest) (*MultimodalResult, error) {
	if err := requirePrompt(req.Prompt); err != nil {
		return nil, err
	}
	if req.ImageURL == "" {
		return nil, invalidf("image_url is required")
	}

	var tools responses.RequestTools
	if req.UseWebSearch {
		tools = append(tools, responses.RequestToolWebSearch{})
	}

	resp, ext, err := s.create(ctx, "multimodal", responses.Request{
		Model: cmp.Or(req.Model, s.toolModel),
		Input: responses.InputItemList{
			responses.Message{
				Role: responses.RoleUser,
				Content: responses.MessageContentList{
					responses.InputText{Text: req.Prompt},
					responses.InputImage{ImageURL: req.ImageURL},
				},
			},
		},
		Tools: tools,
	})
	if err != nil {
		return nil, err
	}

	return &MultimodalResult{
		ID:           resp.ID,
		Text:         ext.Text,
		Annotations:  ext.Annotations,
		FullResponse: resp.FullResponse(),
	}, nil
}

// FileSearch sends a prompt with the file search tool attached, searching
// the given vector store.
func (s *Service) FileSearch(ctx context.Context, req FileSearchRequest) (*FileSearchResult, error) {
	if err := requirePrompt(req.Prompt); err != nil {
		return nil, err
	}
	if req.VectorStoreID == "" {
		return nil, invalidf("vector_store_id is required")
	}
	if req.MaxResults < 0 || req.MaxResults > MaxFileSearchResults {
		return nil, invalidf("max_results must be between 1 and %d", MaxFileSearchResults)
	}

	resp, ext, err := s.create(ctx, "file_search", responses.Request{
		Model: cmp.Or(req.Model, s.toolModel),
		Input: responses.Text(req.Prompt),
		Tools: responses.RequestTools{
			responses.RequestToolFileSearch{
				VectorStoreIDs: []string{req.VectorStoreID},
				MaxNumResults:  req.MaxResults,
			},
		},
		Include: []string{responses.IncludeFileSearchResults},
	})
	if err != nil {
		return nil, err
	}

	return &FileSearchResult{
		ID:             resp.ID,
		Text:           ext.Text,
		RetrievedFiles: ext.RetrievedFiles,
	}, nil
}

// CreateVectorStore creates a new, empty vector store.
func (s *Service) CreateVectorStore(ctx context.Context, req VectorStoreRequest) (*VectorStoreResult, error) {
	name := cmp.Or(strings.TrimSpace(req.Name), DefaultVectorStoreName)

	vs, err := s.vectorStores.CreateVectorStore(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("failed to create vector store: %w", err)
	}

	s.logger.InfoContext(ctx, "created vector store", "vector_store_id", vs.ID, "name", vs.Name)

	return &VectorStoreResult{
		ID:        vs.ID,
		Name:      vs.Name,
		CreatedAt: vs.CreatedAt,
	}, nil
}

// EncodeImage returns the contents of r as standard base64, so a frontend
// can build a data URL for [Service.Multimodal].
func (s *Service) EncodeImage(filename string, r io.Reader) (*EncodedImage, error) {
	var sb strings.Builder

	enc := base64.NewEncoder(base64.StdEncoding, &sb)
	if _, err := io.Copy(enc, r); err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}

	return &EncodedImage{
		Filename: filename,
		Base64:   sb.String(),
	}, nil
}
