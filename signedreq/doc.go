// Package signedreq authenticates HTTP requests between two parties that
// share a secret key.
//
// The sender stamps every request with a random id, an issue timestamp,
// the algorithm name and an HMAC of a canonical payload. The receiver
// rebuilds the payload, recomputes the HMAC and rejects requests whose
// signature differs, whose timestamp is outside a tolerance window, or
// whose id has been seen before.
//
// # Canonical Payload
//
// The signed payload is the JSON object
//
//	{"id":"…","method":"POST","timestamp":"2001-01-01 00:00:00","uri":"https://localhost","content":"…"}
//
// with keys in exactly that order. The method is upper-cased and a single
// trailing slash is removed from the absolute URI. When the body is valid
// JSON it is re-encoded before being embedded as content: whitespace is
// dropped, object key order is kept, slashes and non-ASCII characters are
// written unescaped and integers keep their digits. Any other body is
// embedded verbatim.
//
// # Supported Algorithms
//
// Any HMAC hash from Algorithms can be used; sha256 is the default:
//
//   - md5, sha1
//   - sha224, sha256, sha384, sha512, sha512/224, sha512/256
//   - sha3-224, sha3-256, sha3-384, sha3-512
//   - ripemd160
//
// # Signing Requests
//
// Use SignRequest, or a reusable Generator, to obtain a signed clone:
//
//	signed, err := signedreq.SignRequest(req, signedreq.SignConfig{
//	    Profile: signedreq.Profile{Key: key},
//	})
//
// # Verifying Requests
//
// VerifyRequest runs the complete receiving-side check, including the
// replay cache:
//
//	err := signedreq.VerifyRequest(req, signedreq.VerifyConfig{
//	    Profile: signedreq.Profile{Key: key},
//	    Cache:   cache,
//	})
//
// Verifier exposes the individual checks for callers that need them:
//
//	v := signedreq.NewVerifier(signedreq.FromHTTP(req))
//	ok := v.IsValid(key) && !v.IsExpired(30 * time.Second)
//
// # Client Transport
//
// NewTransport creates an http.RoundTripper that signs every outgoing
// request:
//
//	client := &http.Client{
//	    Transport: signedreq.NewTransport(nil, signedreq.SignConfig{
//	        Profile: profile,
//	    }),
//	}
//
// # Server Middleware
//
// Middleware returns a gorilla/mux middleware that rejects unverified
// requests with the status from StatusCode:
//
//	mw, err := signedreq.Middleware(signedreq.MiddlewareConfig{
//	    Verify: signedreq.VerifyConfig{Profile: profile, Cache: cache},
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	router.Use(mw)
//
// # Errors
//
// Rejections wrap ErrInvalidSignature or ErrExpiredRequest (HTTP 400).
// Profile problems wrap ErrInvalidConfiguration and a missing cache is
// ErrNoReplayCache (HTTP 422). Cache backend failures wrap ErrReplayCache
// (HTTP 503) and reject the request.
package signedreq
