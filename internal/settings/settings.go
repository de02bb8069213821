// Package settings resolves runtime configuration from the process
// environment. Every read returns a fresh snapshot so changes to the
// environment (tests, credential rotation) are picked up immediately.
package settings

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Environment variable names consumed by Load.
const (
	EnvPropertyID       = "GA4_PROPERTY_ID"
	EnvClientEmail      = "GA4_CLIENT_EMAIL"
	EnvPrivateKey       = "GA4_PRIVATE_KEY"
	EnvDefaultDateRange = "GA4_DEFAULT_DATE_RANGE"
	EnvSiteURL          = "SEARCH_CONSOLE_SITE_URL"
)

// DefaultDateRange is used when GA4_DEFAULT_DATE_RANGE is unset.
const DefaultDateRange = "30d"

// ResultsDirName is the fixed directory under the working directory where
// saved results live.
const ResultsDirName = "results"

// Settings is an immutable snapshot of the process environment.
type Settings struct {
	PropertyID       string
	ClientEmail      string
	PrivateKey       string
	DefaultDateRange string
	SiteURL          string
	ResultsDir       string
}

// ValidationResult reports which required credentials are missing.
type ValidationResult struct {
	Valid  bool
	Errors []string
}

// Load reads the environment into a Settings snapshot. It never fails;
// absent variables come back as empty strings. Literal `\n` sequences in
// the private key are unescaped into real newlines so PEM keys survive
// single-line env files.
func Load() Settings {
	dateRange := os.Getenv(EnvDefaultDateRange)
	if dateRange == "" {
		dateRange = DefaultDateRange
	}

	return Settings{
		PropertyID:       os.Getenv(EnvPropertyID),
		ClientEmail:      os.Getenv(EnvClientEmail),
		PrivateKey:       strings.ReplaceAll(os.Getenv(EnvPrivateKey), `\n`, "\n"),
		DefaultDateRange: dateRange,
		SiteURL:          os.Getenv(EnvSiteURL),
		ResultsDir:       resultsDir(),
	}
}

// Validate loads a fresh snapshot and checks required credentials.
// One error per missing field, in a stable order.
func Validate() ValidationResult {
	s := Load()

	var errs []string
	required := []struct {
		value  string
		envVar string
	}{
		{s.PropertyID, EnvPropertyID},
		{s.ClientEmail, EnvClientEmail},
		{s.PrivateKey, EnvPrivateKey},
	}
	for _, r := range required {
		if r.value == "" {
			errs = append(errs, fmt.Sprintf("%s is required", r.envVar))
		}
	}

	return ValidationResult{Valid: len(errs) == 0, Errors: errs}
}

// resultsDir resolves the fixed results root. The path is always
// <working dir>/results; retention under it is the operator's concern.
func resultsDir() string {
	wd, err := os.Getwd()
	if err != nil {
		// Fall back to a relative path; MkdirAll at save time still works.
		return ResultsDirName
	}
	return filepath.Join(wd, ResultsDirName)
}
