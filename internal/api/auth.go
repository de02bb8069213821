package api

import (
	"context"
	"net/http"

	"golang.org/x/oauth2/google"
	"golang.org/x/oauth2/jwt"

	"siteinsight/internal/settings"
)

// OAuth2 scopes for the three API families.
const (
	AnalyticsReadOnlyScope = "https://www.googleapis.com/auth/analytics.readonly"
	WebmastersScope        = "https://www.googleapis.com/auth/webmasters"
	IndexingScope          = "https://www.googleapis.com/auth/indexing"
)

// serviceAccountClient builds an HTTP client that signs requests with a
// two-legged service-account JWT for the given scope. Presence of the
// credentials is the registry's concern; a malformed-but-non-empty key is
// only discovered when the first network call exchanges the assertion.
func serviceAccountClient(ctx context.Context, s settings.Settings, scope string) *http.Client {
	conf := &jwt.Config{
		Email:      s.ClientEmail,
		PrivateKey: []byte(s.PrivateKey),
		Scopes:     []string{scope},
		TokenURL:   google.JWTTokenURL,
	}
	return conf.Client(ctx)
}
