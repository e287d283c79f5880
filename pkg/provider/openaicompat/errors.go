package openaicompat

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/rhuss/morpheus/pkg/api"
	"github.com/rhuss/morpheus/pkg/debug"
)

// MapHTTPError converts an HTTP response with a non-2xx status code into
// a transport APIError. The message always starts with the status code and
// text; the upstream error message is appended when the body carries one.
func MapHTTPError(resp *http.Response) *api.APIError {
	message := ExtractErrorMessage(resp.Body)

	if message == "" {
		switch {
		case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
			message = "backend authentication failed"
		case resp.StatusCode == http.StatusNotFound:
			message = "backend resource not found"
		case resp.StatusCode == http.StatusTooManyRequests:
			message = "backend rate limit exceeded"
		case resp.StatusCode >= http.StatusInternalServerError:
			message = "backend server error"
		default:
			message = "unexpected backend error"
		}
	}

	return api.NewTransportError(resp.StatusCode, fmt.Sprintf("HTTP %s: %s", statusLine(resp), message))
}

// MapNetworkError converts a network-level error (connection refused, timeout,
// DNS resolution failure) into an APIError with a descriptive message.
func MapNetworkError(err error) *api.APIError {
	return api.NewConnectionError(fmt.Sprintf("backend connection error: %s", err.Error()), err)
}

// ExtractErrorMessage tries to parse the response body as a ChatErrorResponse
// and returns the error message if found. Any other body, including JSON of
// a different shape, is returned as trimmed text.
func ExtractErrorMessage(body io.Reader) string {
	if body == nil {
		return ""
	}

	data, err := io.ReadAll(io.LimitReader(body, 4096))
	if err != nil || len(data) == 0 {
		return ""
	}

	var errResp ChatErrorResponse
	if err := json.Unmarshal(data, &errResp); err == nil && errResp.Error.Message != "" {
		return errResp.Error.Message
	}

	text := strings.TrimSpace(string(data))
	if text == "{}" {
		return ""
	}
	return debug.Truncate(text, 200)
}

// statusLine renders "401 Unauthorized", falling back to the bare code for
// non-standard statuses.
func statusLine(resp *http.Response) string {
	if text := http.StatusText(resp.StatusCode); text != "" {
		return fmt.Sprintf("%d %s", resp.StatusCode, text)
	}
	return fmt.Sprintf("%d", resp.StatusCode)
}
