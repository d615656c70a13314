package signedreq

import "net/http"

// Transport is an http.RoundTripper that signs outgoing requests.
//
// Use NewTransport to create a Transport with a configured *http.Transport
// for proxy, TLS, and timeout settings.
type Transport struct {
	base      http.RoundTripper
	generator *Generator
	err       error
}

// NewTransport creates a signing Transport that delegates to base after
// signing each request. When base is nil, a clone of http.DefaultTransport
// is used, giving an independent connection pool with default proxy, TLS,
// and timeout settings. A configuration error is reported by every
// RoundTrip call.
//
//	client := &http.Client{
//	    Transport: signedreq.NewTransport(nil, signedreq.SignConfig{Profile: profile}),
//	}
func NewTransport(base *http.Transport, cfg SignConfig) *Transport {
	var rt http.RoundTripper
	if base != nil {
		rt = base
	} else {
		rt = http.DefaultTransport.(*http.Transport).Clone()
	}

	generator, err := NewGenerator(cfg)

	return &Transport{
		base:      rt,
		generator: generator,
		err:       err,
	}
}

// RoundTrip signs a clone of the request and delegates to the base
// transport. The caller's request is not mutated; its body is read and
// closed.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.err != nil {
		closeBody(req)
		return nil, t.err
	}

	body, err := consumeBody(req)
	if err != nil {
		return nil, err
	}

	signed, err := t.generator.signWithBody(req, body)
	if err != nil {
		return nil, err
	}

	return t.base.RoundTrip(signed)
}

// closeBody honours the RoundTripper contract of closing the request body
// on error.
func closeBody(req *http.Request) {
	if req.Body != nil {
		req.Body.Close()
	}
}
