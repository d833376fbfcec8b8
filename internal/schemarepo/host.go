package schemarepo

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// PullRequestInput describes the pull request opened when a draft is
// submitted.
type PullRequestInput struct {
	Title      string
	Body       string
	HeadBranch string
	BaseBranch string
}

// Host is the source-control host the canonical schema repository lives on.
// FetchFile returns (nil, nil) when the file does not exist at the ref.
type Host interface {
	FetchFile(ctx context.Context, ref, path string) ([]byte, error)
	OpenPullRequest(ctx context.Context, in PullRequestInput) (string, error)
}

// HTTPHost talks to the host's REST API. The token, when set, is sent as a
// bearer credential.
type HTTPHost struct {
	apiBase    string
	repository string
	token      string
	client     *http.Client
}

func NewHTTPHost(apiBase, repository, token string) *HTTPHost {
	return &HTTPHost{
		apiBase:    apiBase,
		repository: repository,
		token:      token,
		client:     &http.Client{Timeout: 30 * time.Second},
	}
}

func (h *HTTPHost) FetchFile(ctx context.Context, ref, path string) ([]byte, error) {
	endpoint := fmt.Sprintf("%s/repos/%s/raw/%s?ref=%s",
		h.apiBase, h.repository, path, url.QueryEscape(ref))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("building fetch request: %w", err)
	}
	h.authorize(req)

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching %s: unexpected status %s", path, resp.Status)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return data, nil
}

func (h *HTTPHost) OpenPullRequest(ctx context.Context, in PullRequestInput) (string, error) {
	payload, err := json.Marshal(map[string]string{
		"title": in.Title,
		"body":  in.Body,
		"head":  in.HeadBranch,
		"base":  in.BaseBranch,
	})
	if err != nil {
		return "", fmt.Errorf("encoding pull request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/repos/%s/pulls", h.apiBase, h.repository)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("building pull request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	h.authorize(req)

	resp, err := h.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("opening pull request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("opening pull request: unexpected status %s", resp.Status)
	}

	var created struct {
		URL     string `json:"url"`
		HTMLURL string `json:"html_url"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		return "", fmt.Errorf("decoding pull request response: %w", err)
	}
	if created.HTMLURL != "" {
		return created.HTMLURL, nil
	}
	return created.URL, nil
}

func (h *HTTPHost) authorize(req *http.Request) {
	if h.token != "" {
		req.Header.Set("Authorization", "Bearer "+h.token)
	}
}
