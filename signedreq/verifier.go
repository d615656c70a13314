package signedreq

import (
	"fmt"
	"time"
)

// Verifier checks a single inbound request. It holds the request and reads
// only the headers and body it needs. Setters return the Verifier so header
// names can be configured fluently:
//
//	v := signedreq.NewVerifier(signedreq.FromHTTP(r)).
//	    SetAlgorithmHeader("X-Algorithm")
//	if !v.IsValid(key) { ... }
type Verifier struct {
	req             Request
	payload         PayloadBuilder
	signatureHeader string
	algorithmHeader string
	clock           Clock
}

// NewVerifier returns a Verifier for r using the default header names and
// the system clock.
func NewVerifier(r Request) *Verifier {
	return &Verifier{
		req: r,
		payload: PayloadBuilder{
			IDHeader:        DefaultIDHeader,
			TimestampHeader: DefaultTimestampHeader,
		},
		signatureHeader: DefaultSignatureHeader,
		algorithmHeader: DefaultAlgorithmHeader,
		clock:           SystemClock,
	}
}

// SetSignatureHeader sets the header carrying the hex signature.
func (v *Verifier) SetSignatureHeader(name string) *Verifier {
	v.signatureHeader = name
	return v
}

// SetAlgorithmHeader sets the header carrying the algorithm name.
func (v *Verifier) SetAlgorithmHeader(name string) *Verifier {
	v.algorithmHeader = name
	return v
}

// SetIDHeader sets the header carrying the request id.
func (v *Verifier) SetIDHeader(name string) *Verifier {
	v.payload.IDHeader = name
	return v
}

// SetTimestampHeader sets the header carrying the issue timestamp.
func (v *Verifier) SetTimestampHeader(name string) *Verifier {
	v.payload.TimestampHeader = name
	return v
}

// SetClock replaces the clock used by IsExpired.
func (v *Verifier) SetClock(clock Clock) *Verifier {
	if clock != nil {
		v.clock = clock
	}

	return v
}

// ID returns the request id, or an empty string when the header is absent.
func (v *Verifier) ID() string {
	id, _ := v.req.Header(v.payload.idHeader())
	return id
}

// Content returns the body as it enters the payload: canonical JSON when
// the body is JSON, the raw body otherwise.
func (v *Verifier) Content() (string, error) {
	body, err := v.req.Body()
	if err != nil {
		return "", err
	}

	return canonicalContent(body), nil
}

// IsValid reports whether the signature header matches the signature
// recomputed with key. Missing algorithm or signature headers, an unknown
// algorithm and an unreadable body all yield false.
func (v *Verifier) IsValid(key string) bool {
	return v.verifySignature(key) == nil
}

// IsExpired reports whether the timestamp is more than tolerance away from
// now in either direction. A missing or malformed timestamp is expired.
func (v *Verifier) IsExpired(tolerance time.Duration) bool {
	value, ok := v.req.Header(v.payload.timestampHeader())
	if !ok {
		value = expiredTimestamp
	}

	issued, err := ParseTimestamp(value)
	if err != nil {
		return true
	}

	skew := v.clock.Now().Sub(issued)
	if skew < 0 {
		skew = -skew
	}

	return skew.Truncate(time.Second) > tolerance
}

// verifySignature returns ErrInvalidSignature wrapped with the reason for
// rejection.
func (v *Verifier) verifySignature(key string) error {
	algorithm, ok := v.req.Header(v.algorithmHeader)
	if !ok {
		return fmt.Errorf("%w: missing %s header", ErrInvalidSignature, v.algorithmHeader)
	}

	provided, ok := v.req.Header(v.signatureHeader)
	if !ok {
		return fmt.Errorf("%w: missing %s header", ErrInvalidSignature, v.signatureHeader)
	}

	if !Algorithm(algorithm).Supported() {
		return fmt.Errorf("%w: unsupported algorithm %q", ErrInvalidSignature, algorithm)
	}

	payload, err := v.payload.Build(v.req)
	if err != nil {
		return fmt.Errorf("%w: reading body: %w", ErrInvalidSignature, err)
	}

	if !NewSignature(payload, Algorithm(algorithm), key).Matches(provided) {
		return fmt.Errorf("%w: signature mismatch", ErrInvalidSignature)
	}

	return nil
}
