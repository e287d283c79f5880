// Package morpheus implements text and structured-object generation against
// the Morpheus inference API. Morpheus exposes an OpenAI-compatible Chat
// Completions endpoint, so this adapter delegates HTTP and SSE handling to
// openaicompat.Client and adds model selection, prompt shaping and JSON
// object extraction.
package morpheus
