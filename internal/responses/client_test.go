package responses_test

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/picatz/openai-relay/internal/responses"
	"github.com/shoenig/test/must"
)

// testServer starts a fake responses API. Every request body is decoded into
// a generic map and sent on the returned channel before reply is written.
func testServer(t *testing.T, status int, reply string) (*responses.Client, <-chan map[string]any) {
	t.Helper()

	bodies := make(chan map[string]any, 1)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/responses" || r.Method != http.MethodPost {
			http.NotFound(w, r)
			return
		}
		if r.Header.Get("Authorization") != "Bearer test-key" {
			w.WriteHeader(http.StatusUnauthorized)
			io.WriteString(w, `{"error":{"message":"Incorrect API key provided","type":"invalid_request_error","code":"invalid_api_key"}}`)
			return
		}

		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		bodies <- body

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		io.WriteString(w, reply)
	}))
	t.Cleanup(srv.Close)

	client := responses.NewClient("test-key", srv.Client())
	client.BaseURL = srv.URL + "/v1"
	return client, bodies
}

const helloResponse = `{
	"id": "resp_123",
	"object": "response",
	"status": "completed",
	"model": "gpt-4o-mini-2024-07-18",
	"output": [
		{
			"type": "message",
			"id": "msg_1",
			"role": "assistant",
			"status": "completed",
			"content": [{"type": "output_text", "text": "Hello", "annotations": []}]
		}
	]
}`

func TestCreateSimpleText(t *testing.T) {
	client, bodies := testServer(t, http.StatusOK, helloResponse)

	resp, err := client.Create(t.Context(), responses.Request{
		Model: "gpt-4o-mini",
		Input: responses.Text("Hey there!"),
	})
	must.NoError(t, err)
	must.Eq(t, "resp_123", resp.ID)
	must.Len(t, 1, resp.Output)
	must.Eq(t, "Hello", responses.Extract(resp).Text)

	body := <-bodies
	must.Eq(t, "gpt-4o-mini", body["model"].(string))
	must.Eq(t, "Hey there!", body["input"].(string))

	_, hasTools := body["tools"]
	must.False(t, hasTools)
	_, hasPrevious := body["previous_response_id"]
	must.False(t, hasPrevious)

	// The raw body is kept verbatim.
	var raw map[string]any
	must.NoError(t, json.Unmarshal(resp.FullResponse(), &raw))
	must.Eq(t, "resp_123", raw["id"].(string))
}

func TestCreateWithToolsAndPreviousResponse(t *testing.T) {
	client, bodies := testServer(t, http.StatusOK, helloResponse)

	_, err := client.Create(t.Context(), responses.Request{
		Model:              "gpt-4o",
		Input:              responses.Text("and now?"),
		PreviousResponseID: "resp_prev",
		Include:            []string{responses.IncludeFileSearchResults},
		Tools: responses.RequestTools{
			responses.RequestToolWebSearch{},
			responses.RequestToolFileSearch{VectorStoreIDs: []string{"vs_1"}},
		},
	})
	must.NoError(t, err)

	body := <-bodies
	must.Eq(t, "resp_prev", body["previous_response_id"].(string))
	must.Eq(t, []any{"file_search_call.results"}, body["include"].([]any))

	tools := body["tools"].([]any)
	must.Len(t, 2, tools)
	must.Eq(t, map[string]any{"type": "web_search"}, tools[0].(map[string]any))
	must.Eq(t, map[string]any{
		"type":             "file_search",
		"vector_store_ids": []any{"vs_1"},
	}, tools[1].(map[string]any))
}

func TestCreateFileSearchMaxNumResults(t *testing.T) {
	client, bodies := testServer(t, http.StatusOK, helloResponse)

	_, err := client.Create(t.Context(), responses.Request{
		Model: "gpt-4o",
		Input: responses.Text("find"),
		Tools: responses.RequestTools{
			responses.RequestToolFileSearch{VectorStoreIDs: []string{"vs_1"}, MaxNumResults: 5},
		},
	})
	must.NoError(t, err)

	body := <-bodies
	must.Eq(t, map[string]any{
		"type":             "file_search",
		"vector_store_ids": []any{"vs_1"},
		"max_num_results":  5.0,
	}, body["tools"].([]any)[0].(map[string]any))
}

func TestCreateMultimodalInput(t *testing.T) {
	client, bodies := testServer(t, http.StatusOK, helloResponse)

	_, err := client.Create(t.Context(), responses.Request{
		Model: "gpt-4o",
		Input: responses.InputItemList{
			responses.Message{
				Role: responses.RoleUser,
				Content: responses.MessageContentList{
					responses.InputText{Text: "what is this?"},
					responses.InputImage{ImageURL: "data:image/png;base64,AAAA"},
				},
			},
		},
	})
	must.NoError(t, err)

	body := <-bodies
	input := body["input"].([]any)
	must.Len(t, 1, input)

	msg := input[0].(map[string]any)
	must.Eq(t, "message", msg["type"].(string))
	must.Eq(t, "user", msg["role"].(string))
	must.Eq(t, []any{
		map[string]any{"type": "input_text", "text": "what is this?"},
		map[string]any{"type": "input_image", "image_url": "data:image/png;base64,AAAA"},
	}, msg["content"].([]any))
}

func TestCreateAPIError(t *testing.T) {
	client, bodies := testServer(t, http.StatusBadRequest, `{"error":{"message":"The requested model 'nope' does not exist.","type":"invalid_request_error","param":"model","code":"model_not_found"}}`)

	_, err := client.Create(t.Context(), responses.Request{
		Model: "nope",
		Input: responses.Text("hi"),
	})
	<-bodies
	must.Error(t, err)

	var apiErr *responses.APIError
	must.True(t, errors.As(err, &apiErr))
	must.Eq(t, http.StatusBadRequest, apiErr.StatusCode)
	must.Eq(t, "model_not_found", apiErr.Code)
	must.Eq(t, "model", apiErr.Param)
	must.Eq(t, "The requested model 'nope' does not exist.", err.Error())
}

func TestCreateUnauthorized(t *testing.T) {
	client, _ := testServer(t, http.StatusOK, helloResponse)
	client.APIKey = "wrong"

	_, err := client.Create(t.Context(), responses.Request{Model: "gpt-4o", Input: responses.Text("hi")})
	must.Error(t, err)
	must.Eq(t, "Incorrect API key provided", err.Error())
}

func TestCreateNonJSONError(t *testing.T) {
	client, bodies := testServer(t, http.StatusBadGateway, "upstream unavailable\n")

	_, err := client.Create(t.Context(), responses.Request{Model: "gpt-4o", Input: responses.Text("hi")})
	<-bodies
	must.Error(t, err)
	must.Eq(t, "upstream unavailable", err.Error())
}

func TestCreateFailedResponseStatus(t *testing.T) {
	client, bodies := testServer(t, http.StatusOK, `{"id":"resp_1","status":"failed","error":{"code":"invalid_prompt","type":"invalid_request_error","param":"input","message":"The model failed"},"output":[]}`)

	_, err := client.Create(t.Context(), responses.Request{Model: "gpt-4o", Input: responses.Text("hi")})
	<-bodies
	must.Error(t, err)
	must.Eq(t, "The model failed", err.Error())

	var apiErr *responses.APIError
	must.True(t, errors.As(err, &apiErr))
	must.Eq(t, http.StatusOK, apiErr.StatusCode)
	must.Eq(t, "invalid_prompt", apiErr.Code)
	must.Eq(t, "invalid_request_error", apiErr.Type)
	must.Eq(t, "input", apiErr.Param)
}
