package signedreq

import (
	"bytes"
	"io"
	"net/http"
)

// Request is the read-only view of an HTTP request needed to build its
// canonical payload. FromHTTP adapts *http.Request; other request types can
// implement it directly.
type Request interface {
	// Method returns the HTTP method as sent.
	Method() string

	// URI returns the absolute request URI including the query string.
	URI() string

	// Header returns the first value of the named header and whether the
	// header is present at all.
	Header(name string) (string, bool)

	// Body returns the request body. Implementations must allow repeated
	// calls.
	Body() ([]byte, error)
}

type httpRequest struct {
	r *http.Request
}

// FromHTTP wraps an *http.Request. Client requests carry an absolute URL;
// its Host is replaced by Request.Host when set, and user info and the
// fragment are dropped since neither reaches the server. Server requests are
// rebuilt from Host, the TLS state and the request URI.
func FromHTTP(r *http.Request) Request {
	return &httpRequest{r: r}
}

func (h *httpRequest) Method() string {
	return h.r.Method
}

func (h *httpRequest) URI() string {
	return absoluteURI(h.r)
}

func (h *httpRequest) Header(name string) (string, bool) {
	values := h.r.Header.Values(name)
	if len(values) == 0 {
		return "", false
	}

	return values[0], true
}

func (h *httpRequest) Body() ([]byte, error) {
	return readAndRestoreBody(h.r)
}

func absoluteURI(r *http.Request) string {
	if r.URL == nil {
		return r.RequestURI
	}

	if r.URL.IsAbs() {
		u := *r.URL
		u.User = nil
		u.Fragment = ""
		u.RawFragment = ""

		if r.Host != "" {
			u.Host = r.Host
		}

		return u.String()
	}

	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}

	host := r.Host
	if host == "" {
		host = r.URL.Host
	}

	return scheme + "://" + host + r.URL.RequestURI()
}

// readAndRestoreBody reads the entire request body and replaces it with a
// new reader so the body can be consumed again by downstream handlers.
func readAndRestoreBody(r *http.Request) ([]byte, error) {
	if r.Body == nil || r.Body == http.NoBody {
		return nil, nil
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, err
	}

	r.Body.Close()
	r.Body = io.NopCloser(bytes.NewReader(body))

	return body, nil
}
