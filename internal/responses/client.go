package responses

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/tidwall/gjson"
)

// DefaultBaseURL is the default base URL for the OpenAI API.
const DefaultBaseURL = "https://api.openai.com/v1"

// Client represents an OpenAI API client for the responses endpoint.
type Client struct {
	// HTTPClient is the HTTP client used to communicate with the API.
	// If nil, http.DefaultClient is used.
	HTTPClient *http.Client

	// APIKey is your OpenAI API key.
	APIKey string

	// BaseURL is the base URL for the OpenAI API.
	BaseURL string
}

// NewClient creates a new Client for the OpenAI responses API.
func NewClient(apiKey string, httpClient *http.Client) *Client {
	return &Client{
		HTTPClient: httpClient,
		APIKey:     apiKey,
		BaseURL:    DefaultBaseURL,
	}
}

// Request represents the request payload for the responses API.
type Request struct {
	// https://platform.openai.com/docs/api-reference/responses/create#responses-create-model
	Model string `json:"model"`

	// Text, image, or file inputs to the model, used to generate a response.
	//
	// https://platform.openai.com/docs/api-reference/responses/create#responses-create-input
	Input RequestInput `json:"input"`

	// An array of tools the model may call while generating a response. A nil
	// or empty list omits the field from the request entirely.
	//
	// https://platform.openai.com/docs/api-reference/responses/create#responses-create-tools
	Tools RequestTools `json:"tools,omitempty"`

	// Additional output data to include in the model response, such as
	// "file_search_call.results".
	//
	// https://platform.openai.com/docs/api-reference/responses/create#responses-create-include
	Include []string `json:"include,omitempty"`

	// The unique ID of the previous response to the model. Use this to create multi-turn [conversations].
	//
	// [conversations]: https://platform.openai.com/docs/guides/conversation-state?api-mode=responses
	//
	// https://platform.openai.com/docs/api-reference/responses/create#responses-create-previous_response_id
	PreviousResponseID string `json:"previous_response_id,omitzero"`
}

// IncludeFileSearchResults asks the API to return the matched chunks of a
// file search call, which are otherwise omitted from the response.
const IncludeFileSearchResults = "file_search_call.results"

// RequestTools is the list of tools attached to a single request.
type RequestTools []RequestTool

// RequestTool is implemented by every tool type the client knows how to send.
//
// https://platform.openai.com/docs/api-reference/responses/create#responses-create-tools
type RequestTool interface {
	isRequestTool()
}

// RequestToolWebSearch lets the model search the web for the latest information
// before generating a response.
type RequestToolWebSearch struct{}

func (RequestToolWebSearch) isRequestTool() {}

func (RequestToolWebSearch) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type string `json:"type"`
	}{
		Type: "web_search",
	})
}

// RequestToolFileSearch searches the contents of uploaded files in one or
// more vector stores.
type RequestToolFileSearch struct {
	// The IDs of the vector stores to search.
	VectorStoreIDs []string `json:"vector_store_ids"`

	// The maximum number of results to return, between 1 and 50.
	MaxNumResults int `json:"max_num_results,omitzero"`
}

func (RequestToolFileSearch) isRequestTool() {}

func (fs RequestToolFileSearch) MarshalJSON() ([]byte, error) {
	type alias RequestToolFileSearch
	return json.Marshal(struct {
		Type string `json:"type"`
		alias
	}{
		Type:  "file_search",
		alias: (alias)(fs),
	})
}

// RequestInput is either a plain [Text] prompt or an [InputItemList].
type RequestInput interface {
	isRequestInput()
}

// InputItemList is a list of input items, such as messages.
type InputItemList []InputItem

func (InputItemList) isRequestInput() {}

// InputItem is a single item of an [InputItemList].
type InputItem interface {
	isInputItem()
}

type Role string

const (
	RoleUser Role = "user"
)

// MessageContent is either [Text] or a [MessageContentList].
type MessageContent interface {
	isMessageContent()
}

// Text is a plain string, usable both as the whole request input and as the
// content of a single message.
type Text string

func (Text) isMessageContent() {}
func (Text) isRequestInput()   {}

// MessageContentList is a list of typed content parts for a single message.
type MessageContentList []MessageContentPart

func (MessageContentList) isMessageContent() {}

// MessageContentPart is implemented by [InputText] and [InputImage].
type MessageContentPart interface {
	isMessageContentPart()
}

type Message struct {
	Role    Role           `json:"role"`
	Content MessageContent `json:"content"`
}

func (Message) isInputItem() {}

func (m Message) MarshalJSON() ([]byte, error) {
	type alias Message
	return json.Marshal(struct {
		Type string `json:"type"`
		alias
	}{
		Type:  "message",
		alias: (alias)(m),
	})
}

type InputText struct {
	Text string `json:"text"`
}

func (InputText) isMessageContentPart() {}

func (it InputText) MarshalJSON() ([]byte, error) {
	type alias InputText
	return json.Marshal(struct {
		Type string `json:"type"`
		alias
	}{
		Type:  "input_text",
		alias: (alias)(it),
	})
}

// InputImage is an image input. ImageURL may be a fully qualified URL or a
// base64 encoded data URL; it is sent as given.
type InputImage struct {
	ImageURL string `json:"image_url"`
}

func (InputImage) isMessageContentPart() {}

func (ii InputImage) MarshalJSON() ([]byte, error) {
	type alias InputImage
	return json.Marshal(struct {
		Type string `json:"type"`
		alias
	}{
		Type:  "input_image",
		alias: (alias)(ii),
	})
}

// APIError is returned when the API responds with a non-success status code,
// or with a response object whose error field is set.
type APIError struct {
	StatusCode int
	Code       string
	Type       string
	Param      string
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("API error: %d %s", e.StatusCode, http.StatusText(e.StatusCode))
	}
	return e.Message
}

func handleErrorResponse(resp *http.Response) error {
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read error response: %w", err)
	}

	apiErr := &APIError{StatusCode: resp.StatusCode}

	if !gjson.ValidBytes(b) {
		apiErr.Message = strings.TrimSpace(string(b))
		return apiErr
	}

	errObj := gjson.GetBytes(b, "error")
	apiErr.Code = errObj.Get("code").String()
	apiErr.Type = errObj.Get("type").String()
	apiErr.Param = errObj.Get("param").String()
	apiErr.Message = errObj.Get("message").String()

	// Some proxies in front of the API flatten the error object.
	if apiErr.Message == "" {
		apiErr.Message = gjson.GetBytes(b, "message").String()
	}

	return apiErr
}

// https://platform.openai.com/docs/api-reference/responses/create
func (c *Client) Create(ctx context.Context, reqData Request) (*Response, error) {
	url := fmt.Sprintf("%s/responses", strings.TrimSuffix(c.BaseURL, "/"))

	body, err := json.Marshal(reqData)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request data: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.APIKey)

	httpClient := c.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTP request error: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, handleErrorResponse(resp)
	}

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	apiResp, err := ParseResponse(b)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal API response: %w", err)
	}

	if apiResp.Error != nil {
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			Code:       apiResp.Error.Code,
			Type:       apiResp.Error.Type,
			Param:      apiResp.Error.Param,
			Message:    apiResp.Error.Message,
		}
	}

	return apiResp, nil
}
