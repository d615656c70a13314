package signedreq

import (
	"bytes"
	"strings"
)

// Default names of the envelope headers set by Generator.
const (
	DefaultIDHeader        = "X-SIGNED-ID"
	DefaultTimestampHeader = "X-SIGNED-TIMESTAMP"
)

// PayloadBuilder converts a request into the canonical string that both
// sides sign. The zero value uses DefaultIDHeader and DefaultTimestampHeader.
type PayloadBuilder struct {
	// IDHeader names the header carrying the request id.
	IDHeader string

	// TimestampHeader names the header carrying the issue timestamp.
	TimestampHeader string
}

// Build returns the JSON object
//
//	{"id":…,"method":…,"timestamp":…,"uri":…,"content":…}
//
// with keys in that exact order. Missing id and timestamp headers become
// empty strings, the method is upper-cased, one trailing slash is removed
// from the URI and JSON bodies are re-encoded canonically.
func (b PayloadBuilder) Build(r Request) (string, error) {
	body, err := r.Body()
	if err != nil {
		return "", err
	}

	id, _ := r.Header(b.idHeader())
	timestamp, _ := r.Header(b.timestampHeader())

	return encodePayload(id, r.Method(), timestamp, r.URI(), canonicalContent(body)), nil
}

func (b PayloadBuilder) idHeader() string {
	if b.IDHeader == "" {
		return DefaultIDHeader
	}

	return b.IDHeader
}

func (b PayloadBuilder) timestampHeader() string {
	if b.TimestampHeader == "" {
		return DefaultTimestampHeader
	}

	return b.TimestampHeader
}

func encodePayload(id, method, timestamp, uri, content string) string {
	var buf bytes.Buffer

	writeJSON(&buf, jsonObject{
		{key: "id", value: id},
		{key: "method", value: strings.ToUpper(method)},
		{key: "timestamp", value: timestamp},
		{key: "uri", value: strings.TrimSuffix(uri, "/")},
		{key: "content", value: content},
	})

	return buf.String()
}
