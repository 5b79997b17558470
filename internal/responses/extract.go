package responses

// Extraction is the flattened view of a response's output tree.
//
// Every list preserves encounter order. Nothing is deduplicated: a file that
// is both matched by a file search and cited in the text appears twice in
// RetrievedFiles.
type Extraction struct {
	// Text is the concatenation of every output text part.
	Text string

	// Annotations holds every annotation of every output text part.
	Annotations []Annotation

	// WebSearchResults holds web search call items and output text
	// annotations, interleaved as they appear in the output.
	WebSearchResults []any

	// RetrievedFiles holds file search matches and file citations.
	RetrievedFiles []RetrievedFile

	// Skipped counts output items and content parts that were not
	// recognized and contributed nothing to the extraction.
	Skipped int
}

// RetrievedFile is a file referenced by a file search call result or by a
// file citation annotation. Snippet and Score are only known for the former.
type RetrievedFile struct {
	FileID   string   `json:"file_id"`
	Filename string   `json:"filename"`
	Snippet  string   `json:"snippet,omitempty"`
	Score    *float64 `json:"score,omitempty"`
}

// Extract walks the output of resp. It never fails: missing fields are
// treated as empty and unknown shapes are skipped.
func Extract(resp *Response) Extraction {
	ext := Extraction{
		Annotations:      []Annotation{},
		WebSearchResults: []any{},
		RetrievedFiles:   []RetrievedFile{},
	}
	if resp == nil {
		return ext
	}

	for _, item := range resp.Output {
		switch item := item.(type) {
		case OutputMessage:
			for _, content := range item.Content {
				switch content := content.(type) {
				case OutputText:
					ext.Text += content.Text
					for _, a := range content.Annotations {
						ext.Annotations = append(ext.Annotations, a)
						ext.WebSearchResults = append(ext.WebSearchResults, a)
						if fc, ok := a.(FileCitation); ok {
							ext.RetrievedFiles = append(ext.RetrievedFiles, RetrievedFile{
								FileID:   fc.FileID,
								Filename: fc.Filename,
							})
						}
					}
				case OutputRefusal:
					// Refusals carry no text or annotations.
				default:
					ext.Skipped++
				}
			}
		case WebSearchCall:
			ext.WebSearchResults = append(ext.WebSearchResults, item)
		case FileSearchCall:
			for _, r := range item.Results {
				ext.RetrievedFiles = append(ext.RetrievedFiles, RetrievedFile{
					FileID:   r.FileID,
					Filename: r.Filename,
					Snippet:  r.Text,
					Score:    r.Score,
				})
			}
		default:
			ext.Skipped++
		}
	}

	return ext
}
