// Package vectorstores uploads files to OpenAI file storage and attaches them
// to vector stores, using the official openai-go SDK.
package vectorstores

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/picatz/openai-relay/internal/responses"
)

// Client wraps the file and vector store services of the openai-go SDK.
type Client struct {
	client openai.Client
}

// NewClient returns a Client authenticated with apiKey. Additional request
// options, such as option.WithBaseURL or option.WithHTTPClient, are applied
// after the key.
func NewClient(apiKey string, opts ...option.RequestOption) *Client {
	opts = append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)
	return &Client{
		client: openai.NewClient(opts...),
	}
}

// VectorStore is a provider managed document index.
type VectorStore struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	CreatedAt int64  `json:"created_at"`
}

// File is a file stored by the provider.
type File struct {
	ID       string `json:"id"`
	Filename string `json:"filename"`
	Bytes    int64  `json:"bytes"`
	Status   string `json:"status"`
}

// VectorStoreFile is a file attached to a vector store.
type VectorStoreFile struct {
	ID            string `json:"id"`
	VectorStoreID string `json:"vector_store_id"`
	Status        string `json:"status"`
}

// CreateVectorStore creates an empty vector store.
//
// https://platform.openai.com/docs/api-reference/vector-stores/create
func (c *Client) CreateVectorStore(ctx context.Context, name string) (*VectorStore, error) {
	vs, err := c.client.VectorStores.New(ctx, openai.VectorStoreNewParams{
		Name: openai.String(name),
	})
	if err != nil {
		return nil, providerError(err)
	}

	return &VectorStore{
		ID:        vs.ID,
		Name:      vs.Name,
		CreatedAt: vs.CreatedAt,
	}, nil
}

// UploadFile stores the contents of r with the given filename and content
// type, for use with file search.
//
// https://platform.openai.com/docs/api-reference/files/create
func (c *Client) UploadFile(ctx context.Context, filename string, r io.Reader, contentType string) (*File, error) {
	f, err := c.client.Files.New(ctx, openai.FileNewParams{
		File:    openai.File(r, filename, contentType),
		Purpose: openai.FilePurposeAssistants,
	})
	if err != nil {
		return nil, providerError(err)
	}

	return &File{
		ID:       f.ID,
		Filename: f.Filename,
		Bytes:    f.Bytes,
		Status:   string(f.Status),
	}, nil
}

// AttachFile adds an uploaded file to a vector store.
//
// https://platform.openai.com/docs/api-reference/vector-stores-files/createFile
func (c *Client) AttachFile(ctx context.Context, vectorStoreID, fileID string) (*VectorStoreFile, error) {
	vsf, err := c.client.VectorStores.Files.New(ctx, vectorStoreID, openai.VectorStoreFileNewParams{
		FileID: fileID,
	})
	if err != nil {
		return nil, providerError(err)
	}

	return &VectorStoreFile{
		ID:            vsf.ID,
		VectorStoreID: vsf.VectorStoreID,
		Status:        string(vsf.Status),
	}, nil
}

// providerError converts SDK errors into the same error type the responses
// client returns, so callers see the provider's message rather than the
// SDK's request dump.
func providerError(err error) error {
	var apiErr *openai.Error
	if !errors.As(err, &apiErr) {
		return err
	}

	msg := apiErr.Message
	if msg == "" {
		msg = fmt.Sprintf("API error: %d", apiErr.StatusCode)
	}

	return &responses.APIError{
		StatusCode: apiErr.StatusCode,
		Code:       apiErr.Code,
		Type:       apiErr.Type,
		Param:      apiErr.Param,
		Message:    msg,
	}
}
