package signedreq

import (
	"net/http"

	"github.com/gorilla/mux"
)

// MiddlewareConfig configures the server-side verification middleware.
type MiddlewareConfig struct {
	// Verify configures how requests are verified.
	Verify VerifyConfig

	// OnError is called when verification fails. When nil, the status from
	// StatusCode is written with its status text as the body.
	OnError func(w http.ResponseWriter, r *http.Request, err error)
}

// Middleware returns a mux.MiddlewareFunc that rejects requests failing
// VerifyRequest. The profile is validated once up front; an invalid
// profile or a missing replay cache is returned as an error instead of
// failing every request.
func Middleware(cfg MiddlewareConfig) (mux.MiddlewareFunc, error) {
	profile := cfg.Verify.Profile.WithDefaults()
	if err := profile.Validate(); err != nil {
		return nil, err
	}

	if !profile.ReplayAllowed && cfg.Verify.Cache == nil {
		return nil, ErrNoReplayCache
	}

	onError := cfg.OnError
	if onError == nil {
		onError = defaultOnError
	}

	verifyCfg := cfg.Verify
	verifyCfg.Profile = profile

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if err := VerifyRequest(r, verifyCfg); err != nil {
				onError(w, r, err)
				return
			}

			next.ServeHTTP(w, r)
		})
	}, nil
}

func defaultOnError(w http.ResponseWriter, _ *http.Request, err error) {
	code := StatusCode(err)
	http.Error(w, http.StatusText(code), code)
}
