package signedreq

import (
	"bytes"
	"io"
	"net/http"
)

// SignConfig configures request signing.
type SignConfig struct {
	// Profile supplies header names, algorithm and key. Required fields are
	// checked with Profile.Validate after defaults are applied.
	Profile Profile

	// IDs generates request ids. Defaults to UUIDv4.
	IDs IDGenerator

	// Clock stamps the issue time. Defaults to SystemClock.
	Clock Clock

	// Metrics counts signed requests when set.
	Metrics *Metrics
}

// Generator stamps outgoing requests with an id, a timestamp, the algorithm
// name and the signature. It is safe for concurrent use.
type Generator struct {
	profile Profile
	ids     IDGenerator
	clock   Clock
	metrics *Metrics
}

// NewGenerator validates the profile and returns a Generator.
func NewGenerator(cfg SignConfig) (*Generator, error) {
	profile := cfg.Profile.WithDefaults()
	if err := profile.Validate(); err != nil {
		return nil, err
	}

	ids := cfg.IDs
	if ids == nil {
		ids = UUIDv4
	}

	clock := cfg.Clock
	if clock == nil {
		clock = SystemClock
	}

	return &Generator{
		profile: profile,
		ids:     ids,
		clock:   clock,
		metrics: cfg.Metrics,
	}, nil
}

// Sign returns a signed clone of r. A fresh id and timestamp are generated
// on every call, so retrying with the result of a second Sign call is a new
// request. r keeps its headers; its body is restored after reading.
func (g *Generator) Sign(r *http.Request) (*http.Request, error) {
	body, err := cloneableBody(r)
	if err != nil {
		return nil, err
	}

	return g.signWithBody(r, body)
}

// signWithBody signs a clone of r carrying body. r is not modified.
func (g *Generator) signWithBody(r *http.Request, body []byte) (*http.Request, error) {
	clone := r.Clone(r.Context())
	if body != nil {
		clone.Body = io.NopCloser(bytes.NewReader(body))
		clone.GetBody = func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(body)), nil
		}
		clone.ContentLength = int64(len(body))
	}

	clone.Header.Set(g.profile.IDHeader, g.ids.NewID())
	clone.Header.Set(g.profile.TimestampHeader, FormatTimestamp(g.clock.Now()))

	payload, err := g.profile.payloadBuilder().Build(FromHTTP(clone))
	if err != nil {
		return nil, err
	}

	signature := NewSignature(payload, g.profile.Algorithm, g.profile.Key)

	clone.Header.Set(g.profile.AlgorithmHeader, g.profile.Algorithm.String())
	clone.Header.Set(g.profile.SignatureHeader, signature.String())

	g.metrics.observeSigned(g.profile.Name)

	return clone, nil
}

// SignRequest signs r with a one-off Generator built from cfg.
func SignRequest(r *http.Request, cfg SignConfig) (*http.Request, error) {
	g, err := NewGenerator(cfg)
	if err != nil {
		return nil, err
	}

	return g.Sign(r)
}

// cloneableBody reads the body through GetBody when available so the
// caller's reader is left untouched, and falls back to reading and
// restoring r.Body.
func cloneableBody(r *http.Request) ([]byte, error) {
	if r.Body == nil || r.Body == http.NoBody {
		return nil, nil
	}

	if r.GetBody == nil {
		return readAndRestoreBody(r)
	}

	rc, err := r.GetBody()
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	return io.ReadAll(rc)
}

// consumeBody reads the body for a RoundTrip and closes r.Body without
// replacing it. GetBody is preferred so a partially read r.Body is never
// signed.
func consumeBody(r *http.Request) ([]byte, error) {
	if r.Body == nil || r.Body == http.NoBody {
		return nil, nil
	}
	defer r.Body.Close()

	if r.GetBody == nil {
		return io.ReadAll(r.Body)
	}

	rc, err := r.GetBody()
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	return io.ReadAll(rc)
}
