package businesscentral

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
)

// tokenSafetyMargin is subtracted from the reported token lifetime so a
// token is refreshed before it can expire mid-request.
const tokenSafetyMargin = 60 * time.Second

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
}

// tokenSource acquires and caches an OAuth2 client-credentials token for a
// Microsoft identity platform scope. Safe for concurrent use.
type tokenSource struct {
	http         *resty.Client
	tokenURL     string
	clientID     string
	clientSecret string
	scope        string

	mu        sync.Mutex
	token     string
	expiresAt time.Time
}

func newTokenSource(tokenURL, clientID, clientSecret, scope string) *tokenSource {
	return &tokenSource{
		http:         resty.New().SetTimeout(15 * time.Second),
		tokenURL:     tokenURL,
		clientID:     clientID,
		clientSecret: clientSecret,
		scope:        scope,
	}
}

// Token returns a valid bearer token, requesting a fresh one when the cached
// token is missing or within the safety margin of expiry.
func (ts *tokenSource) Token(ctx context.Context) (string, error) {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	if ts.token != "" && time.Now().Before(ts.expiresAt) {
		return ts.token, nil
	}

	var body tokenResponse
	resp, err := ts.http.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"client_id":     ts.clientID,
			"client_secret": ts.clientSecret,
			"scope":         ts.scope,
			"grant_type":    "client_credentials",
		}).
		SetResult(&body).
		Post(ts.tokenURL)
	if err != nil {
		return "", fmt.Errorf("request access token: %w", err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("token endpoint returned %d: %s", resp.StatusCode(), resp.String())
	}
	if body.AccessToken == "" {
		return "", fmt.Errorf("token endpoint returned no access_token")
	}

	expiresIn := body.ExpiresIn
	if expiresIn <= 0 {
		expiresIn = 3600
	}

	ts.token = body.AccessToken
	ts.expiresAt = time.Now().Add(time.Duration(expiresIn)*time.Second - tokenSafetyMargin)

	return ts.token, nil
}
