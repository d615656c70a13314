package profiles

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"regexp"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/vitalvas/signedrequests/signedreq"
)

// Defaults for profiles other than signedreq.DefaultProfileName.
const (
	CustomAlgorithmHeader = "X-Algorithm"
	CustomTolerance       = 60 * time.Second
)

// envReference matches ${NAME}. Other uses of $ are kept literally so keys
// may contain it.
var envReference = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// expandEnv replaces ${NAME} references in s with getenv(NAME).
func expandEnv(s string, getenv func(string) string) string {
	return envReference.ReplaceAllStringFunc(s, func(ref string) string {
		return getenv(ref[2 : len(ref)-1])
	})
}

// fileProfile mirrors one profile entry in the YAML document.
type fileProfile struct {
	Algorithm     string        `yaml:"algorithm"`
	CachePrefix   string        `yaml:"cache-prefix"`
	Headers       fileHeaders   `yaml:"headers"`
	Key           string        `yaml:"key"`
	RequestReplay requestReplay `yaml:"request-replay"`
}

type fileHeaders struct {
	Signature string `yaml:"signature"`
	Algorithm string `yaml:"algorithm"`
	ID        string `yaml:"id"`
	Timestamp string `yaml:"timestamp"`
}

type requestReplay struct {
	Allow bool `yaml:"allow"`

	// Tolerance and TTL are in seconds.
	Tolerance *int `yaml:"tolerance"`
	TTL       *int `yaml:"ttl"`
}

// Load decodes a YAML profile document, applies per-name defaults and
// validates every profile. Unknown fields are rejected.
func Load(r io.Reader) (signedreq.Profiles, error) {
	return load(r, os.Getenv)
}

// LoadFile reads the profile document at path.
func LoadFile(path string) (signedreq.Profiles, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", signedreq.ErrInvalidConfiguration, err)
	}
	defer f.Close()

	return Load(f)
}

// LoadEnvFiles loads .env files into the process environment without
// overriding variables that are already set. Missing files are skipped.
func LoadEnvFiles(paths ...string) error {
	for _, path := range paths {
		if err := godotenv.Load(path); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}

			return fmt.Errorf("%w: %s: %w", signedreq.ErrInvalidConfiguration, path, err)
		}
	}

	return nil
}

func load(r io.Reader, getenv func(string) string) (signedreq.Profiles, error) {
	var doc map[string]fileProfile

	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: no profiles defined", signedreq.ErrInvalidConfiguration)
		}

		return nil, fmt.Errorf("%w: %w", signedreq.ErrInvalidConfiguration, err)
	}

	if len(doc) == 0 {
		return nil, fmt.Errorf("%w: no profiles defined", signedreq.ErrInvalidConfiguration)
	}

	out := make(signedreq.Profiles, len(doc))
	for name, fp := range doc {
		p, err := fp.profile(name, getenv)
		if err != nil {
			return nil, err
		}

		out[name] = p
	}

	for _, name := range out.Names() {
		if err := out[name].Validate(); err != nil {
			return nil, err
		}
	}

	return out, nil
}

// Defaults returns the base profile for name before file values are
// applied.
func Defaults(name string) signedreq.Profile {
	p := signedreq.Profile{
		Name:            name,
		AlgorithmHeader: signedreq.DefaultAlgorithmHeader,
		Tolerance:       signedreq.DefaultTolerance,
	}

	if name != signedreq.DefaultProfileName {
		p.AlgorithmHeader = CustomAlgorithmHeader
		p.Tolerance = CustomTolerance
	}

	return p
}

func (fp fileProfile) profile(name string, getenv func(string) string) (signedreq.Profile, error) {
	expand := func(s string) string {
		return expandEnv(s, getenv)
	}

	p := Defaults(name)

	set := func(dst *string, value string) {
		if v := expand(value); v != "" {
			*dst = v
		}
	}

	set(&p.SignatureHeader, fp.Headers.Signature)
	set(&p.AlgorithmHeader, fp.Headers.Algorithm)
	set(&p.IDHeader, fp.Headers.ID)
	set(&p.TimestampHeader, fp.Headers.Timestamp)
	set(&p.CachePrefix, fp.CachePrefix)

	if alg := expand(fp.Algorithm); alg != "" {
		p.Algorithm = signedreq.Algorithm(alg)
	}

	p.Key = expand(fp.Key)
	p.ReplayAllowed = fp.RequestReplay.Allow

	if t := fp.RequestReplay.Tolerance; t != nil {
		if *t <= 0 {
			return signedreq.Profile{}, fmt.Errorf("%w: profile %q: tolerance must be positive", signedreq.ErrInvalidConfiguration, name)
		}

		p.Tolerance = time.Duration(*t) * time.Second
	}

	if t := fp.RequestReplay.TTL; t != nil {
		if *t <= 0 {
			return signedreq.Profile{}, fmt.Errorf("%w: profile %q: ttl must be positive", signedreq.ErrInvalidConfiguration, name)
		}

		p.ReplayTTL = time.Duration(*t) * time.Second
	}

	return p.WithDefaults(), nil
}
