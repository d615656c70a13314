package signedreq

import (
	"fmt"
	"slices"
	"time"

	"golang.org/x/net/http/httpguts"
)

// Profile defaults.
const (
	DefaultProfileName     = "default"
	DefaultSignatureHeader = "X-Signature"
	DefaultAlgorithmHeader = "X-Signature-Algorithm"
	DefaultCachePrefix     = "signed-requests"
	DefaultTolerance       = 30 * time.Second
)

// Profile is a named bundle of signing settings shared by both peers. A
// Profile is a plain value; resolve it once and pass it to NewGenerator or
// VerifyConfig.
type Profile struct {
	// Name identifies the profile in logs and metrics.
	Name string

	// IDHeader and TimestampHeader name the envelope headers. Default to
	// DefaultIDHeader and DefaultTimestampHeader.
	IDHeader        string
	TimestampHeader string

	// AlgorithmHeader names the header carrying the algorithm.
	AlgorithmHeader string

	// SignatureHeader names the header carrying the hex signature.
	SignatureHeader string

	// Algorithm signs outgoing requests. Defaults to DefaultAlgorithm.
	Algorithm Algorithm

	// Key is the shared secret. Required.
	Key string

	// CachePrefix namespaces replay cache keys as CachePrefix + "." + id.
	CachePrefix string

	// ReplayAllowed disables the tolerance and replay checks.
	ReplayAllowed bool

	// Tolerance is the accepted clock skew between issue and verification.
	Tolerance time.Duration

	// ReplayTTL is how long a consumed id is remembered. Defaults to
	// MinReplayTTL(Tolerance); shorter values are rejected by Validate.
	ReplayTTL time.Duration
}

// MinReplayTTL returns the shortest replay TTL that covers the whole
// acceptance window for tolerance. Timestamps are accepted up to tolerance
// on either side of now, and skew is compared in whole seconds, so an id
// must outlive 2*tolerance plus the truncated second on each edge.
func MinReplayTTL(tolerance time.Duration) time.Duration {
	return 2*tolerance + 2*time.Second
}

// WithDefaults returns a copy of p with empty fields set to their defaults.
func (p Profile) WithDefaults() Profile {
	if p.Name == "" {
		p.Name = DefaultProfileName
	}

	if p.IDHeader == "" {
		p.IDHeader = DefaultIDHeader
	}

	if p.TimestampHeader == "" {
		p.TimestampHeader = DefaultTimestampHeader
	}

	if p.AlgorithmHeader == "" {
		p.AlgorithmHeader = DefaultAlgorithmHeader
	}

	if p.SignatureHeader == "" {
		p.SignatureHeader = DefaultSignatureHeader
	}

	if p.Algorithm == "" {
		p.Algorithm = DefaultAlgorithm
	}

	if p.CachePrefix == "" {
		p.CachePrefix = DefaultCachePrefix
	}

	if p.Tolerance == 0 {
		p.Tolerance = DefaultTolerance
	}

	if p.ReplayTTL == 0 {
		p.ReplayTTL = MinReplayTTL(p.Tolerance)
	}

	return p
}

// Validate reports configuration problems as ErrInvalidConfiguration. The
// key itself never appears in the error.
func (p Profile) Validate() error {
	headers := []struct{ role, name string }{
		{"id", p.IDHeader},
		{"timestamp", p.TimestampHeader},
		{"algorithm", p.AlgorithmHeader},
		{"signature", p.SignatureHeader},
	}

	for _, h := range headers {
		if !httpguts.ValidHeaderFieldName(h.name) {
			return fmt.Errorf("%w: profile %q has an invalid %s header name %q", ErrInvalidConfiguration, p.Name, h.role, h.name)
		}
	}

	if !p.Algorithm.Supported() {
		return fmt.Errorf("%w: profile %q uses unsupported algorithm %q", ErrInvalidConfiguration, p.Name, p.Algorithm)
	}

	if p.Key == "" {
		return fmt.Errorf("%w: profile %q has no key", ErrInvalidConfiguration, p.Name)
	}

	if !p.ReplayAllowed && p.Tolerance <= 0 {
		return fmt.Errorf("%w: profile %q needs a positive tolerance", ErrInvalidConfiguration, p.Name)
	}

	if !p.ReplayAllowed && p.ReplayTTL < MinReplayTTL(p.Tolerance) {
		return fmt.Errorf("%w: profile %q replay ttl %s is shorter than %s", ErrInvalidConfiguration, p.Name, p.ReplayTTL, MinReplayTTL(p.Tolerance))
	}

	return nil
}

// ReplayKey returns the replay cache key for a request id.
func (p Profile) ReplayKey(id string) string {
	return p.CachePrefix + "." + id
}

func (p Profile) payloadBuilder() PayloadBuilder {
	return PayloadBuilder{IDHeader: p.IDHeader, TimestampHeader: p.TimestampHeader}
}

// Profiles is a flat table of named profiles.
type Profiles map[string]Profile

// Resolve returns the named profile with defaults applied. Unknown names
// return ErrInvalidConfiguration.
func (ps Profiles) Resolve(name string) (Profile, error) {
	p, ok := ps[name]
	if !ok {
		return Profile{}, fmt.Errorf("%w: profile %q", ErrInvalidConfiguration, name)
	}

	if p.Name == "" {
		p.Name = name
	}

	return p.WithDefaults(), nil
}

// Names returns the profile names in sorted order.
func (ps Profiles) Names() []string {
	names := make([]string, 0, len(ps))
	for name := range ps {
		names = append(names, name)
	}

	slices.Sort(names)

	return names
}
