package commands

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ddurler/icomsim/internal/cli/health"
)

// apiTag mirrors pkg/adminapi's tagView JSON shape.
type apiTag struct {
	IdTag   string `json:"id_tag"`
	Label   string `json:"label"`
	Unity   string `json:"unity,omitempty"`
	Format  string `json:"format"`
	IsWrite bool   `json:"is_write"`
	Value   string `json:"value"`
}

// apiUser mirrors pkg/adminapi's userView JSON shape.
type apiUser struct {
	ID              int    `json:"id"`
	Name            string `json:"name"`
	UseNotification bool   `json:"use_notification"`
}

type apiError struct {
	Error string `json:"error"`
}

// adminClient is a thin HTTP client for the diagnostic API, following the
// teacher's apiclient shape (base URL + bearer token + a small method per
// route) without the full session/cookie machinery dfsctl's client needs.
type adminClient struct {
	baseURL string
	token   string
	http    *http.Client
}

func newAdminClient() *adminClient {
	return &adminClient{
		baseURL: serverURL,
		token:   bearerToken,
		http:    &http.Client{Timeout: 5 * time.Second},
	}
}

func (c *adminClient) do(method, path string, body io.Reader) ([]byte, error) {
	req, err := http.NewRequest(method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request to %s failed: %w", c.baseURL, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode >= 400 {
		var apiErr apiError
		if json.Unmarshal(data, &apiErr) == nil && apiErr.Error != "" {
			return nil, fmt.Errorf("%s (status %d)", apiErr.Error, resp.StatusCode)
		}
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return data, nil
}

func (c *adminClient) ListTags() ([]apiTag, error) {
	data, err := c.do(http.MethodGet, "/tags", nil)
	if err != nil {
		return nil, err
	}
	var tags []apiTag
	if err := json.Unmarshal(data, &tags); err != nil {
		return nil, fmt.Errorf("failed to decode tag list: %w", err)
	}
	return tags, nil
}

func (c *adminClient) GetTag(zone, num string) (apiTag, error) {
	data, err := c.do(http.MethodGet, "/tags/"+zone+"/"+num, nil)
	if err != nil {
		return apiTag{}, err
	}
	var tag apiTag
	if err := json.Unmarshal(data, &tag); err != nil {
		return apiTag{}, fmt.Errorf("failed to decode tag: %w", err)
	}
	return tag, nil
}

func (c *adminClient) SetTagValue(zone, num, value string) (apiTag, error) {
	payload, err := json.Marshal(map[string]string{"value": value})
	if err != nil {
		return apiTag{}, err
	}
	data, err := c.do(http.MethodPut, "/tags/"+zone+"/"+num+"/value", bytes.NewReader(payload))
	if err != nil {
		return apiTag{}, err
	}
	var tag apiTag
	if err := json.Unmarshal(data, &tag); err != nil {
		return apiTag{}, fmt.Errorf("failed to decode tag: %w", err)
	}
	return tag, nil
}

func (c *adminClient) Health() (health.Response, error) {
	data, err := c.do(http.MethodGet, "/health", nil)
	if err != nil {
		return health.Response{}, err
	}
	var resp health.Response
	if err := json.Unmarshal(data, &resp); err != nil {
		return health.Response{}, fmt.Errorf("failed to decode health response: %w", err)
	}
	return resp, nil
}

func (c *adminClient) ListUsers() ([]apiUser, error) {
	data, err := c.do(http.MethodGet, "/users", nil)
	if err != nil {
		return nil, err
	}
	var users []apiUser
	if err := json.Unmarshal(data, &users); err != nil {
		return nil, fmt.Errorf("failed to decode user list: %w", err)
	}
	return users, nil
}
