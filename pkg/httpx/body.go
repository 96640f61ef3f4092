package httpx

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
)

// maxPeekBytes caps how much body is buffered when peeking a field.
const maxPeekBytes = 1 << 16

// peekJSONField reads a top-level string field out of a JSON body and
// restores the body so the handler can decode it again. Returns "" on
// any parse problem; peeking must never fail a request.
func peekJSONField(r *http.Request, field string) string {
	if r.Body == nil {
		return ""
	}

	buf, err := io.ReadAll(io.LimitReader(r.Body, maxPeekBytes))
	_ = r.Body.Close()
	r.Body = io.NopCloser(bytes.NewReader(buf))
	if err != nil {
		return ""
	}

	var payload map[string]json.RawMessage
	if err := json.Unmarshal(buf, &payload); err != nil {
		return ""
	}

	var value string
	if raw, ok := payload[field]; ok {
		_ = json.Unmarshal(raw, &value)
	}
	return value
}
