package responses

import (
	"encoding/json"
	"fmt"
)

// Annotation is a citation attached to a span of output text.
type Annotation interface {
	AnnotationType() string
}

// AnnotationList decodes the "annotations" array of an output text part.
// Annotations of an unrecognized type are kept as [UnknownAnnotation].
type AnnotationList []Annotation

func (al *AnnotationList) UnmarshalJSON(b []byte) error {
	for _, raw := range rawList(b) {
		annotationType := typeOf(raw)

		var (
			annotation Annotation
			err        error
		)
		switch annotationType {
		case "url_citation":
			var a URLCitation
			err = json.Unmarshal(raw, &a)
			annotation = a
		case "file_citation":
			var a FileCitation
			err = json.Unmarshal(raw, &a)
			annotation = a
		case "file_path":
			var a FilePath
			err = json.Unmarshal(raw, &a)
			annotation = a
		case "container_file_citation":
			var a ContainerFileCitation
			err = json.Unmarshal(raw, &a)
			annotation = a
		default:
			err = fmt.Errorf("unknown annotation type: %q", annotationType)
		}
		if err != nil {
			annotation = UnknownAnnotation{Type: annotationType, Raw: raw}
		}

		*al = append(*al, annotation)
	}
	return nil
}

// https://platform.openai.com/docs/api-reference/responses/object#responses/object-output-output_message-content-output_text-annotations-url_citation
type URLCitation struct {
	URL        string `json:"url"`
	Title      string `json:"title"`
	StartIndex int    `json:"start_index"`
	EndIndex   int    `json:"end_index"`
}

func (URLCitation) AnnotationType() string { return "url_citation" }

func (a URLCitation) MarshalJSON() ([]byte, error) {
	type alias URLCitation
	return json.Marshal(struct {
		Type string `json:"type"`
		alias
	}{
		Type:  "url_citation",
		alias: (alias)(a),
	})
}

// https://platform.openai.com/docs/api-reference/responses/object#responses/object-output-output_message-content-output_text-annotations-file_citation
type FileCitation struct {
	FileID   string `json:"file_id"`
	Filename string `json:"filename,omitzero"`
	Index    int    `json:"index"`
}

func (FileCitation) AnnotationType() string { return "file_citation" }

func (a FileCitation) MarshalJSON() ([]byte, error) {
	type alias FileCitation
	return json.Marshal(struct {
		Type string `json:"type"`
		alias
	}{
		Type:  "file_citation",
		alias: (alias)(a),
	})
}

type FilePath struct {
	FileID string `json:"file_id"`
	Index  int    `json:"index"`
}

func (FilePath) AnnotationType() string { return "file_path" }

func (a FilePath) MarshalJSON() ([]byte, error) {
	type alias FilePath
	return json.Marshal(struct {
		Type string `json:"type"`
		alias
	}{
		Type:  "file_path",
		alias: (alias)(a),
	})
}

type ContainerFileCitation struct {
	ContainerID string `json:"container_id"`
	FileID      string `json:"file_id"`
	Filename    string `json:"filename"`
	StartIndex  int    `json:"start_index"`
	EndIndex    int    `json:"end_index"`
}

func (ContainerFileCitation) AnnotationType() string { return "container_file_citation" }

func (a ContainerFileCitation) MarshalJSON() ([]byte, error) {
	type alias ContainerFileCitation
	return json.Marshal(struct {
		Type string `json:"type"`
		alias
	}{
		Type:  "container_file_citation",
		alias: (alias)(a),
	})
}

// UnknownAnnotation is forwarded to callers as the raw JSON it was decoded from.
type UnknownAnnotation struct {
	Type string
	Raw  json.RawMessage
}

func (u UnknownAnnotation) AnnotationType() string { return u.Type }

func (u UnknownAnnotation) MarshalJSON() ([]byte, error) {
	if len(u.Raw) == 0 {
		return []byte("null"), nil
	}
	return u.Raw, nil
}
