package signedreq

import (
	"crypto/hmac"
	"encoding/hex"
)

// Signature is the hex encoded HMAC of a canonical payload.
//
// A Signature built with an unknown algorithm has an empty digest and never
// matches anything.
type Signature struct {
	digest string
}

// NewSignature computes HMAC(algorithm, payload, key). Algorithm or key
// mismatches only produce a different digest, never an error.
func NewSignature(payload string, algorithm Algorithm, key string) Signature {
	newHash, ok := algorithm.hash()
	if !ok {
		return Signature{}
	}

	mac := hmac.New(newHash, []byte(key))
	mac.Write([]byte(payload))

	return Signature{digest: hex.EncodeToString(mac.Sum(nil))}
}

// String returns the lower-case hex digest.
func (s Signature) String() string {
	return s.digest
}

// Equal reports whether both signatures carry the same digest.
func (s Signature) Equal(other Signature) bool {
	return s.Matches(other.digest)
}

// Matches compares the signature against a hex digest taken from a request
// header in constant time.
func (s Signature) Matches(digest string) bool {
	if s.digest == "" || digest == "" {
		return false
	}

	return hmac.Equal([]byte(s.digest), []byte(digest))
}
