// Package openaicompat talks to OpenAI-compatible HTTP backends. It handles
// chat completion request serialization, SSE stream accumulation, embedding
// requests and error mapping.
//
// Provider adapters (morpheus, openai) wrap the clients from this package
// and add model selection, prompt shaping and metrics.
package openaicompat
