package nlu

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/okian/boxskill/internal/httputil"
)

// DefaultIAMURL is the IBM Cloud IAM token endpoint.
const DefaultIAMURL = "https://iam.cloud.ibm.com/identity/token"

const apiKeyGrant = "urn:ibm:params:oauth:grant-type:apikey"

// iamTokenSource exchanges an API key for an IAM bearer token.
type iamTokenSource struct {
	url      string
	apiKey   string
	client   *http.Client
	attempts int
}

type iamResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
	Expiration  int64  `json:"expiration"`
}

// NewIAMTokenSource returns a cached TokenSource that trades apiKey for
// bearer tokens at iamURL, refreshing shortly before expiry.
func NewIAMTokenSource(iamURL, apiKey string, client *http.Client, attempts int) oauth2.TokenSource {
	if iamURL == "" {
		iamURL = DefaultIAMURL
	}
	if client == nil {
		client = http.DefaultClient
	}
	return oauth2.ReuseTokenSource(nil, &iamTokenSource{
		url:      iamURL,
		apiKey:   apiKey,
		client:   client,
		attempts: attempts,
	})
}

// Token implements oauth2.TokenSource.
func (s *iamTokenSource) Token() (*oauth2.Token, error) {
	ctx := context.Background()
	if s.client.Timeout == 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, 30*time.Second)
		defer cancel()
	}

	form := url.Values{
		"grant_type": {apiKeyGrant},
		"apikey":     {s.apiKey},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrIAMToken, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := httputil.Do(ctx, s.client, req, s.attempts, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrIAMToken, err)
	}
	defer resp.Body.Close()

	var body iamResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("%w: decode response: %w", ErrIAMToken, err)
	}
	if body.AccessToken == "" {
		return nil, fmt.Errorf("%w: empty access token", ErrIAMToken)
	}

	tok := &oauth2.Token{AccessToken: body.AccessToken, TokenType: body.TokenType}
	switch {
	case body.Expiration > 0:
		tok.Expiry = time.Unix(body.Expiration, 0)
	case body.ExpiresIn > 0:
		tok.Expiry = time.Now().Add(time.Duration(body.ExpiresIn) * time.Second)
	}
	return tok, nil
}
