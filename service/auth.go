package service

import (
	"context"
	"net/http"
	"os"
	"sync"

	"github.com/rotisserie/eris"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const errTokenFailed = "Failed to get access token for Solar API"

// ServiceAccountTokens issues bearer tokens from a service account key file.
// The token source is built on first use and refreshes itself.
type ServiceAccountTokens struct {
	credentialsPath string
	scopes          []string
	projectID       string

	mu     sync.Mutex
	source oauth2.TokenSource
}

func NewServiceAccountTokens(credentialsPath string, scopes []string, projectID string) *ServiceAccountTokens {
	return &ServiceAccountTokens{
		credentialsPath: credentialsPath,
		scopes:          scopes,
		projectID:       projectID,
	}
}

// AuthHeaders returns the Authorization and x-goog-user-project headers.
func (t *ServiceAccountTokens) AuthHeaders(ctx context.Context) (http.Header, error) {
	src, err := t.tokenSource(ctx)
	if err != nil {
		return nil, internalError(errTokenFailed, err)
	}
	tok, err := src.Token()
	if err != nil {
		return nil, internalError(errTokenFailed, eris.Wrap(err, "refresh token"))
	}

	h := http.Header{}
	h.Set("Authorization", "Bearer "+tok.AccessToken)
	if t.projectID != "" {
		h.Set("x-goog-user-project", t.projectID)
	}
	return h, nil
}

func (t *ServiceAccountTokens) tokenSource(ctx context.Context) (oauth2.TokenSource, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.source != nil {
		return t.source, nil
	}
	if t.credentialsPath == "" {
		return nil, eris.New("no credentials path configured")
	}

	data, err := os.ReadFile(t.credentialsPath)
	if err != nil {
		return nil, eris.Wrap(err, "read credentials file")
	}
	// the token source outlives this request
	creds, err := google.CredentialsFromJSON(context.WithoutCancel(ctx), data, t.scopes...)
	if err != nil {
		return nil, eris.Wrap(err, "parse credentials")
	}
	t.source = creds.TokenSource
	return t.source, nil
}
