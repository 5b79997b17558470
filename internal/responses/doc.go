// Package responses implements a minimal client for the OpenAI responses API,
// along with a typed decoder for the parts of the response object the relay
// cares about: output text, annotations, web search calls and file search calls.
//
// The decoder is intentionally forgiving. Output items, content parts and
// annotations are tagged variants keyed by their "type" field; anything the
// decoder does not recognize is kept as raw JSON and skipped during extraction
// instead of failing the whole response.
//
// https://platform.openai.com/docs/api-reference/responses
package responses
