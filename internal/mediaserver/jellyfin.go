// Mirage - Personalized Virtual Media Libraries
// Copyright 2026 Mirage contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/miragelib/mirage

/*
jellyfin.go - Jellyfin REST API client

Implements the Provider interface against the Jellyfin server API:
library management (virtual folders), scan triggers, user policy reads
and writes, and stream URL construction.

API Reference: https://api.jellyfin.org/
*/

package mediaserver

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"
)

// Ensure JellyfinProvider implements Provider
var _ Provider = (*JellyfinProvider)(nil)

// JellyfinProvider provides access to the Jellyfin REST API.
type JellyfinProvider struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// jellyfinVirtualFolder is the server's library representation.
type jellyfinVirtualFolder struct {
	Name           string   `json:"Name"`
	ItemID         string   `json:"ItemId"`
	CollectionType string   `json:"CollectionType"`
	Locations      []string `json:"Locations"`
}

// jellyfinUser carries the policy fields the binder manages.
type jellyfinUser struct {
	ID     string         `json:"Id"`
	Name   string         `json:"Name"`
	Policy jellyfinPolicy `json:"Policy"`
}

type jellyfinPolicy struct {
	EnableAllFolders bool     `json:"EnableAllFolders"`
	EnabledFolders   []string `json:"EnabledFolders"`
}

// NewJellyfinProvider creates a Jellyfin API client.
//
// Parameters:
//   - baseURL: Jellyfin server URL (e.g., http://localhost:8096)
//   - apiKey: API key from Admin Dashboard > API Keys
func NewJellyfinProvider(baseURL, apiKey string) *JellyfinProvider {
	return &JellyfinProvider{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// SetTimeout overrides the default HTTP client timeout. Zero and negative
// durations are ignored.
func (p *JellyfinProvider) SetTimeout(d time.Duration) {
	if d > 0 {
		p.httpClient.Timeout = d
	}
}

// Ping verifies connectivity and credentials via the system info endpoint.
func (p *JellyfinProvider) Ping(ctx context.Context) error {
	resp, err := p.doRequest(ctx, http.MethodGet, "/System/Info", nil)
	if err != nil {
		return fmt.Errorf("jellyfin ping failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return statusError("jellyfin ping", resp)
	}
	return nil
}

// GetLibraries lists the server's virtual folders.
func (p *JellyfinProvider) GetLibraries(ctx context.Context) ([]Library, error) {
	resp, err := p.doRequest(ctx, http.MethodGet, "/Library/VirtualFolders", nil)
	if err != nil {
		return nil, fmt.Errorf("jellyfin virtual folders request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, statusError("jellyfin virtual folders", resp)
	}

	var folders []jellyfinVirtualFolder
	if err := json.NewDecoder(resp.Body).Decode(&folders); err != nil {
		return nil, fmt.Errorf("failed to decode jellyfin virtual folders: %w", err)
	}

	libs := make([]Library, len(folders))
	for i, f := range folders {
		libs[i] = Library{
			ID:             f.ItemID,
			Name:           f.Name,
			CollectionType: f.CollectionType,
			Paths:          f.Locations,
		}
	}
	return libs, nil
}

// CreateLibrary creates a virtual folder over the given paths. Jellyfin
// takes creation parameters as query values.
func (p *JellyfinProvider) CreateLibrary(ctx context.Context, name, collectionType string, paths []string) error {
	q := url.Values{}
	q.Set("name", name)
	q.Set("collectionType", collectionType)
	q.Set("refreshLibrary", "true")
	for _, path := range paths {
		q.Add("paths", path)
	}

	resp, err := p.doRequest(ctx, http.MethodPost, "/Library/VirtualFolders?"+q.Encode(), nil)
	if err != nil {
		return fmt.Errorf("jellyfin create library failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return statusError("jellyfin create library", resp)
	}
	return nil
}

// RefreshLibrary triggers a metadata scan of one library.
func (p *JellyfinProvider) RefreshLibrary(ctx context.Context, libraryID string) error {
	endpoint := fmt.Sprintf("/Items/%s/Refresh?Recursive=true", url.PathEscape(libraryID))
	resp, err := p.doRequest(ctx, http.MethodPost, endpoint, nil)
	if err != nil {
		return fmt.Errorf("jellyfin refresh failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return statusError("jellyfin refresh", resp)
	}
	return nil
}

// UserAccess returns one user's library access policy.
func (p *JellyfinProvider) UserAccess(ctx context.Context, userID string) (AccessPolicy, error) {
	endpoint := "/Users/" + url.PathEscape(userID)
	resp, err := p.doRequest(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return AccessPolicy{}, fmt.Errorf("jellyfin user request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return AccessPolicy{}, statusError("jellyfin user", resp)
	}

	var user jellyfinUser
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		return AccessPolicy{}, fmt.Errorf("failed to decode jellyfin user: %w", err)
	}
	return AccessPolicy{
		EnableAllFolders: user.Policy.EnableAllFolders,
		EnabledFolders:   user.Policy.EnabledFolders,
	}, nil
}

// SetUserAccess replaces one user's library access policy.
func (p *JellyfinProvider) SetUserAccess(ctx context.Context, userID string, policy AccessPolicy) error {
	endpoint := "/Users/" + url.PathEscape(userID) + "/Policy"
	body := jellyfinPolicy{
		EnableAllFolders: policy.EnableAllFolders,
		EnabledFolders:   policy.EnabledFolders,
	}

	resp, err := p.doRequest(ctx, http.MethodPost, endpoint, body)
	if err != nil {
		return fmt.Errorf("jellyfin policy update failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return statusError("jellyfin policy update", resp)
	}
	return nil
}

// StreamURL builds a static stream URL for a source item. Used for pointer
// artifacts in stream mode, where the generated library has no direct
// filesystem access to the source media.
func (p *JellyfinProvider) StreamURL(externalItemID string) string {
	return fmt.Sprintf("%s/Videos/%s/stream?static=true&api_key=%s",
		p.baseURL, url.PathEscape(externalItemID), url.QueryEscape(p.apiKey))
}

// doRequest performs an HTTP request against the Jellyfin API. A non-nil
// body is JSON-encoded.
func (p *JellyfinProvider) doRequest(ctx context.Context, method, endpoint string, body any) (*http.Response, error) {
	var reader io.Reader = http.NoBody
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, p.baseURL+endpoint, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("X-Emby-Token", p.apiKey)
	req.Header.Set("X-Emby-Client", "Mirage")
	req.Header.Set("X-Emby-Device-Name", "Mirage")
	req.Header.Set("X-Emby-Device-Id", "mirage")
	req.Header.Set("X-Emby-Client-Version", "1.0.0")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")

	return p.httpClient.Do(req)
}

// statusError renders a non-2xx response as an error, including a body
// excerpt when readable.
func statusError(operation string, resp *http.Response) error {
	body, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err != nil || len(body) == 0 {
		return fmt.Errorf("%s returned status %d", operation, resp.StatusCode)
	}
	return fmt.Errorf("%s returned status %d: %s", operation, resp.StatusCode, string(body))
}
