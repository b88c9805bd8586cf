package identity

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// Resolver looks up a participant's email address. "Not found" is reported
// through the found flag, never as an error.
type Resolver interface {
	LookupEmail(ctx context.Context, participantId string) (email string, found bool, err error)
}

// directoryResolver queries an HTTP user directory:
// GET {baseURL}/users/{id} -> {"email": "..."}
type directoryResolver struct {
	baseURL string
	client  *http.Client
}

func NewDirectoryResolver(baseURL string) Resolver {
	return &directoryResolver{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{},
	}
}

func (r *directoryResolver) LookupEmail(ctx context.Context, participantId string) (string, bool, error) {
	if r.baseURL == "" {
		return "", false, nil
	}

	endpoint := fmt.Sprintf("%s/users/%s", r.baseURL, url.PathEscape(participantId))
	req, err := http.NewRequestWithContext(ctx, "GET", endpoint, nil)
	if err != nil {
		return "", false, err
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return "", false, fmt.Errorf("directory lookup failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return "", false, nil
	}
	if resp.StatusCode != http.StatusOK {
		return "", false, fmt.Errorf("directory lookup returned status %d", resp.StatusCode)
	}

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", false, err
	}

	var payload struct {
		Email string `json:"email"`
	}
	if err := json.Unmarshal(bodyBytes, &payload); err != nil {
		return "", false, fmt.Errorf("failed to decode directory response: %w", err)
	}

	if strings.TrimSpace(payload.Email) == "" {
		return "", false, nil
	}
	return payload.Email, true, nil
}
