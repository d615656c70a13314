// Package profiles loads named signedreq profiles from a YAML document.
//
// Each top-level key names a profile:
//
//	default:
//	  algorithm: sha256
//	  cache-prefix: signed-requests
//	  headers:
//	    signature: X-Signature
//	    algorithm: X-Signature-Algorithm
//	  key: ${SIGNED_REQUEST_KEY}
//	  request-replay:
//	    allow: false
//	    tolerance: 30
//
// ${VAR} references in string values are expanded from the environment.
// LoadEnvFiles populates the environment from .env files beforehand.
package profiles
