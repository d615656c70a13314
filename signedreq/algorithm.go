package signedreq

import (
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"hash"
	"slices"
	"strings"

	"golang.org/x/crypto/ripemd160" //nolint:staticcheck // deprecated upstream
	"golang.org/x/crypto/sha3"
)

// Algorithm names an HMAC hash function. Names follow the identifiers used by
// PHP's hash_hmac so that peers on either side agree on the header value.
type Algorithm string

const (
	AlgorithmMD5        Algorithm = "md5"
	AlgorithmSHA1       Algorithm = "sha1"
	AlgorithmSHA224     Algorithm = "sha224"
	AlgorithmSHA256     Algorithm = "sha256"
	AlgorithmSHA384     Algorithm = "sha384"
	AlgorithmSHA512     Algorithm = "sha512"
	AlgorithmSHA512_224 Algorithm = "sha512/224"
	AlgorithmSHA512_256 Algorithm = "sha512/256"
	AlgorithmSHA3_224   Algorithm = "sha3-224"
	AlgorithmSHA3_256   Algorithm = "sha3-256"
	AlgorithmSHA3_384   Algorithm = "sha3-384"
	AlgorithmSHA3_512   Algorithm = "sha3-512"
	AlgorithmRIPEMD160  Algorithm = "ripemd160"
)

// DefaultAlgorithm is used when a profile does not name one.
const DefaultAlgorithm = AlgorithmSHA256

var hashes = map[Algorithm]func() hash.Hash{
	AlgorithmMD5:        md5.New,
	AlgorithmSHA1:       sha1.New,
	AlgorithmSHA224:     sha256.New224,
	AlgorithmSHA256:     sha256.New,
	AlgorithmSHA384:     sha512.New384,
	AlgorithmSHA512:     sha512.New,
	AlgorithmSHA512_224: sha512.New512_224,
	AlgorithmSHA512_256: sha512.New512_256,
	AlgorithmSHA3_224:   sha3.New224,
	AlgorithmSHA3_256:   sha3.New256,
	AlgorithmSHA3_384:   sha3.New384,
	AlgorithmSHA3_512:   sha3.New512,
	AlgorithmRIPEMD160:  ripemd160.New,
}

// String returns the algorithm name as sent in the algorithm header.
func (a Algorithm) String() string {
	return string(a)
}

// Supported reports whether the algorithm is known. Lookup is
// case-insensitive.
func (a Algorithm) Supported() bool {
	_, ok := a.hash()
	return ok
}

func (a Algorithm) hash() (func() hash.Hash, bool) {
	fn, ok := hashes[Algorithm(strings.ToLower(strings.TrimSpace(string(a))))]
	return fn, ok
}

// Algorithms returns the supported algorithm names in sorted order.
func Algorithms() []Algorithm {
	out := make([]Algorithm, 0, len(hashes))
	for alg := range hashes {
		out = append(out, alg)
	}

	slices.Sort(out)

	return out
}
