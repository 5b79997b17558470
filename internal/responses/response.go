package responses

import (
	"encoding/json"
	"fmt"
)

// Response represents a complete response returned by the responses API.
//
// Only the fields used by the relay are decoded; the verbatim JSON body is
// kept in Raw so it can be handed to callers unchanged.
//
// https://platform.openai.com/docs/api-reference/responses/object
type Response struct {
	ID                 string         `json:"id"`
	Object             string         `json:"object"`
	CreatedAt          int64          `json:"created_at"`
	Status             string         `json:"status"`
	Model              string         `json:"model"`
	Error              *ResponseError `json:"error"`
	Output             OutputItemList `json:"output"`
	PreviousResponseID string         `json:"previous_response_id"`
	Usage              Usage          `json:"usage"`

	// Raw is the JSON body the response was decoded from.
	Raw json.RawMessage `json:"-"`
}

type ResponseError struct {
	Code    string `json:"code"`
	Type    string `json:"type"`
	Param   string `json:"param"`
	Message string `json:"message"`
}

type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
	TotalTokens  int `json:"total_tokens"`
}

// ParseResponse decodes a response object, keeping b as the raw body.
func ParseResponse(b []byte) (*Response, error) {
	var resp Response
	if err := json.Unmarshal(b, &resp); err != nil {
		return nil, err
	}
	resp.Raw = append(json.RawMessage(nil), b...)
	return &resp, nil
}

// FullResponse returns the verbatim provider JSON when available, falling
// back to re-encoding the decoded fields.
func (r *Response) FullResponse() json.RawMessage {
	if len(r.Raw) > 0 {
		return r.Raw
	}
	b, err := json.Marshal(r)
	if err != nil {
		return json.RawMessage("null")
	}
	return b
}

// typeOf peeks at the "type" field of a JSON object. It returns an empty
// string for anything that is not an object with a string type.
func typeOf(raw json.RawMessage) string {
	var holder struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(raw, &holder); err != nil {
		return ""
	}
	return holder.Type
}

// rawList decodes b as a JSON array. Anything else (null, an object, a
// scalar) decodes as an empty list.
func rawList(b []byte) []json.RawMessage {
	var list []json.RawMessage
	if err := json.Unmarshal(b, &list); err != nil {
		return nil
	}
	return list
}

// OutputItem is a single item of the response output: an [OutputMessage], a
// [WebSearchCall], a [FileSearchCall] or an [UnknownItem].
type OutputItem interface {
	ItemType() string
}

// OutputItemList decodes the "output" array of a response.
type OutputItemList []OutputItem

func (il *OutputItemList) UnmarshalJSON(b []byte) error {
	for _, raw := range rawList(b) {
		itemType := typeOf(raw)

		var (
			item OutputItem
			err  error
		)
		switch itemType {
		case "message":
			var msg OutputMessage
			err = json.Unmarshal(raw, &msg)
			item = msg
		case "web_search_call":
			var call WebSearchCall
			err = json.Unmarshal(raw, &call)
			item = call
		case "file_search_call":
			var call FileSearchCall
			err = json.Unmarshal(raw, &call)
			item = call
		default:
			err = fmt.Errorf("unknown output item type: %q", itemType)
		}
		if err != nil {
			item = UnknownItem{Type: itemType, Raw: raw}
		}

		*il = append(*il, item)
	}
	return nil
}

type OutputMessage struct {
	ID      string            `json:"id"`
	Role    string            `json:"role"`
	Status  string            `json:"status"`
	Content OutputContentList `json:"content"`
}

func (OutputMessage) ItemType() string { return "message" }

func (m OutputMessage) MarshalJSON() ([]byte, error) {
	type alias OutputMessage
	return json.Marshal(struct {
		Type string `json:"type"`
		alias
	}{
		Type:  "message",
		alias: (alias)(m),
	})
}

// WebSearchCall is the record of a web search performed by the model. The
// raw item is preserved because callers forward it as a search result.
type WebSearchCall struct {
	ID     string          `json:"id"`
	Status string          `json:"status"`
	Action json.RawMessage `json:"action,omitempty"`

	Raw json.RawMessage `json:"-"`
}

func (WebSearchCall) ItemType() string { return "web_search_call" }

func (c *WebSearchCall) UnmarshalJSON(b []byte) error {
	type alias WebSearchCall
	if err := json.Unmarshal(b, (*alias)(c)); err != nil {
		return err
	}
	c.Raw = append(json.RawMessage(nil), b...)
	return nil
}

func (c WebSearchCall) MarshalJSON() ([]byte, error) {
	if len(c.Raw) > 0 {
		return c.Raw, nil
	}
	type alias WebSearchCall
	return json.Marshal(struct {
		Type string `json:"type"`
		alias
	}{
		Type:  "web_search_call",
		alias: (alias)(c),
	})
}

type FileSearchCall struct {
	ID      string             `json:"id"`
	Status  string             `json:"status"`
	Queries []string           `json:"queries"`
	Results []FileSearchResult `json:"results"`
}

func (FileSearchCall) ItemType() string { return "file_search_call" }

func (c *FileSearchCall) UnmarshalJSON(b []byte) error {
	type alias FileSearchCall
	aux := &struct {
		Results       json.RawMessage `json:"results"`
		SearchResults json.RawMessage `json:"search_results"`
		*alias
	}{
		alias: (*alias)(c),
	}
	if err := json.Unmarshal(b, aux); err != nil {
		return err
	}

	// Older API versions used "search_results"; both may be null when the
	// results were not requested with include.
	results := rawList(aux.Results)
	if len(results) == 0 {
		results = rawList(aux.SearchResults)
	}

	c.Results = nil
	for _, raw := range results {
		var r FileSearchResult
		if err := json.Unmarshal(raw, &r); err != nil {
			continue
		}
		c.Results = append(c.Results, r)
	}
	return nil
}

func (c FileSearchCall) MarshalJSON() ([]byte, error) {
	type alias FileSearchCall
	return json.Marshal(struct {
		Type string `json:"type"`
		alias
	}{
		Type:  "file_search_call",
		alias: (alias)(c),
	})
}

// FileSearchResult is a single chunk matched by a file search call.
type FileSearchResult struct {
	FileID     string         `json:"file_id"`
	Filename   string         `json:"filename"`
	Score      *float64       `json:"score,omitempty"`
	Text       string         `json:"text"`
	Attributes map[string]any `json:"attributes,omitempty"`
}

func (r *FileSearchResult) UnmarshalJSON(b []byte) error {
	type alias FileSearchResult
	aux := &struct {
		Content json.RawMessage `json:"content"`
		*alias
	}{
		alias: (*alias)(r),
	}
	if err := json.Unmarshal(b, aux); err != nil {
		return err
	}

	if r.Text != "" {
		return nil
	}

	// Vector store search results carry the text as a list of content parts.
	for _, raw := range rawList(aux.Content) {
		var part struct {
			Text string `json:"text"`
		}
		if err := json.Unmarshal(raw, &part); err == nil {
			r.Text += part.Text
		}
	}
	return nil
}

// UnknownItem is an output item the decoder does not recognize, or one whose
// shape did not match the expected schema for its type.
type UnknownItem struct {
	Type string
	Raw  json.RawMessage
}

func (u UnknownItem) ItemType() string { return u.Type }

func (u UnknownItem) MarshalJSON() ([]byte, error) {
	if len(u.Raw) == 0 {
		return []byte("null"), nil
	}
	return u.Raw, nil
}

// OutputContent is a single content part of an [OutputMessage].
type OutputContent interface {
	ContentType() string
}

type OutputContentList []OutputContent

func (cl *OutputContentList) UnmarshalJSON(b []byte) error {
	for _, raw := range rawList(b) {
		contentType := typeOf(raw)

		var (
			content OutputContent
			err     error
		)
		switch contentType {
		case "output_text", "text":
			var text OutputText
			err = json.Unmarshal(raw, &text)
			content = text
		case "refusal":
			var refusal OutputRefusal
			err = json.Unmarshal(raw, &refusal)
			content = refusal
		default:
			err = fmt.Errorf("unknown content type: %q", contentType)
		}
		if err != nil {
			content = UnknownContent{Type: contentType, Raw: raw}
		}

		*cl = append(*cl, content)
	}
	return nil
}

type OutputText struct {
	Text        string         `json:"text"`
	Annotations AnnotationList `json:"annotations"`
}

func (OutputText) ContentType() string { return "output_text" }

// UnmarshalJSON accepts both the current shape, where "text" is a string, and
// the older one, where "text" is an object holding "value" and "annotations".
func (t *OutputText) UnmarshalJSON(b []byte) error {
	var aux struct {
		Text        json.RawMessage `json:"text"`
		Value       string          `json:"value"`
		Annotations AnnotationList  `json:"annotations"`
	}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}

	t.Annotations = aux.Annotations

	if len(aux.Text) == 0 || string(aux.Text) == "null" {
		t.Text = aux.Value
		return nil
	}

	switch aux.Text[0] {
	case '"':
		return json.Unmarshal(aux.Text, &t.Text)
	case '{':
		var nested struct {
			Value       string         `json:"value"`
			Annotations AnnotationList `json:"annotations"`
		}
		if err := json.Unmarshal(aux.Text, &nested); err != nil {
			return err
		}
		t.Text = nested.Value
		t.Annotations = append(t.Annotations, nested.Annotations...)
		return nil
	default:
		return fmt.Errorf("unexpected text value: %s", aux.Text)
	}
}

func (t OutputText) MarshalJSON() ([]byte, error) {
	type alias OutputText
	return json.Marshal(struct {
		Type string `json:"type"`
		alias
	}{
		Type:  "output_text",
		alias: (alias)(t),
	})
}

type OutputRefusal struct {
	Refusal string `json:"refusal"`
}

func (OutputRefusal) ContentType() string { return "refusal" }

func (r OutputRefusal) MarshalJSON() ([]byte, error) {
	type alias OutputRefusal
	return json.Marshal(struct {
		Type string `json:"type"`
		alias
	}{
		Type:  "refusal",
		alias: (alias)(r),
	})
}

type UnknownContent struct {
	Type string
	Raw  json.RawMessage
}

func (u UnknownContent) ContentType() string { return u.Type }

func (u UnknownContent) MarshalJSON() ([]byte, error) {
	if len(u.Raw) == 0 {
		return []byte("null"), nil
	}
	return u.Raw, nil
}
