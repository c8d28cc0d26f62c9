// Package config defines skill configuration structures and loading hooks.
//
// Conventions:
//   - The on-disk keys match the skill's config.json (storage, nlu_iam_key,
//     url, keywords, concepts, keyword_limit, concept_limit).
//   - Provide New() to build a Config with defaults; Load layers file and env.
//   - External errors are wrapped with this package's sentinel kinds.
package config

import (
	"time"
)

// Defaults.
const (
	DefaultPath        = "./config.json"
	DefaultBoxAPIURL   = "https://api.box.com/2.0"
	DefaultIAMURL      = "https://iam.cloud.ibm.com/identity/token"
	DefaultNLUVersion  = "2019-05-16"
	DefaultHTTPTimeout = 30 * time.Second
)

// Config contains process configuration.
type Config struct {
	// Storage selects the storage backend. Only "box" is supported; any other
	// value fails the invocation at download time.
	Storage string `koanf:"storage" validate:"required"`

	// NLUIAMKey is the IBM Cloud API key exchanged for IAM bearer tokens.
	NLUIAMKey string `koanf:"nlu_iam_key" validate:"required"`

	// URL is the Watson NLU service instance URL.
	URL string `koanf:"url" validate:"required,url"`

	// Keywords and Concepts toggle the NLU features; the limits cap how many
	// results the service returns for each. A zero limit leaves the service default.
	Keywords     bool `koanf:"keywords"`
	KeywordLimit int  `koanf:"keyword_limit" validate:"gte=0"`
	Concepts     bool `koanf:"concepts"`
	ConceptLimit int  `koanf:"concept_limit" validate:"gte=0"`

	// NLUVersion is the API version date sent as ?version=.
	NLUVersion string `koanf:"nlu_version" validate:"required"`

	// IAMURL is the IBM Cloud IAM token endpoint.
	IAMURL string `koanf:"iam_url" validate:"required,url"`

	// BoxAPIURL is the Box content API base URL.
	BoxAPIURL string `koanf:"box_api_url" validate:"required,url"`

	// WorkDir is where downloaded files are staged. Empty means os.TempDir().
	WorkDir string `koanf:"work_dir"`

	// HTTPTimeout bounds every outbound HTTP request.
	HTTPTimeout time.Duration `koanf:"http_timeout"`

	// RetryAttempts is the number of attempts per remote call. 1 disables retries.
	RetryAttempts int `koanf:"retry_attempts" validate:"gte=1,lte=10"`

	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level" validate:"omitempty,oneof=debug info warn warning error"`

	// LogFormat selects text or json log records.
	LogFormat string `koanf:"log_format" validate:"omitempty,oneof=text json"`

	// LogFile optionally mirrors logs to a rotated file.
	LogFile string `koanf:"log_file"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr" validate:"required"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		Storage:       "box",
		Keywords:      true,
		KeywordLimit:  10,
		Concepts:      true,
		ConceptLimit:  10,
		NLUVersion:    DefaultNLUVersion,
		IAMURL:        DefaultIAMURL,
		BoxAPIURL:     DefaultBoxAPIURL,
		HTTPTimeout:   DefaultHTTPTimeout,
		RetryAttempts: 1,
		LogLevel:      "info",
		LogFormat:     "text",
		Addr:          ":8080",
	}
}
