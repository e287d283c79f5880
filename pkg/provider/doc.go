// Package provider defines the capability interfaces the plugin dispatches
// to and the typed parameters each capability accepts. Adapters (morpheus,
// openai) handle their backend protocol internally; the interfaces operate
// on plain text, decoded JSON objects and float vectors.
package provider
