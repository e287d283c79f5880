// Package api defines the error taxonomy shared by the Morpheus plugin
// packages.
//
// Every failed capability invocation surfaces as an [APIError] whose Type
// names the failure class:
//   - configuration_error: missing or invalid settings
//   - transport_error: a non-success upstream status or a broken connection
//   - parse_error: a malformed or absent JSON object in model output
//   - missing_credential: an API key required before any network call
//   - invalid_request: capability parameters rejected at the boundary
//
// Parse and credential errors wrap the sentinels [ErrNoJSONObject],
// [ErrInvalidJSON] and [ErrMissingCredential] for use with errors.Is.
package api
