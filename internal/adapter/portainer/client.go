// Package portainer is a thin typed client for the Portainer stack API.
// It performs no retries; callers decide how to react to failures.
package portainer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/mautichost/provisiond/internal/domain"
)

// Config holds the connection parameters for a Portainer instance.
type Config struct {
	URL        string
	APIToken   string
	EndpointID string
	SwarmID    string
}

// Client talks to the Portainer HTTP API. Every request carries the static
// API token in the X-API-Key header.
type Client struct {
	cfg  Config
	http *http.Client
}

// Compile-time check: Client implements domain.StackSubmitter.
var _ domain.StackSubmitter = (*Client)(nil)

// APIError is returned for any non-success response from Portainer. It
// preserves the remote status code and response body for the audit trail.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("portainer API error (%d): %s", e.StatusCode, e.Body)
}

// New validates the configuration and returns a ready client. A missing URL
// or API token is a construction-time error, never deferred to the first call.
func New(cfg Config) (*Client, error) {
	if cfg.URL == "" || cfg.APIToken == "" {
		return nil, errors.New("portainer configuration is missing: URL and API token are required")
	}
	if cfg.EndpointID == "" {
		cfg.EndpointID = "1"
	}
	if cfg.SwarmID == "" {
		cfg.SwarmID = "swarm-cluster"
	}
	cfg.URL = strings.TrimRight(cfg.URL, "/")

	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: 60 * time.Second},
	}, nil
}

type createStackRequest struct {
	Name             string `json:"Name"`
	SwarmID          string `json:"SwarmID"`
	StackFileContent string `json:"StackFileContent"`
}

type stackResponse struct {
	ID           int64  `json:"Id"`
	Name         string `json:"Name"`
	Status       int    `json:"Status"`
	CreationDate int64  `json:"CreationDate"`
	UpdateDate   int64  `json:"UpdateDate"`
}

func (s stackResponse) toDomain() domain.Stack {
	return domain.Stack{
		ID:           s.ID,
		Name:         s.Name,
		Status:       s.Status,
		CreationDate: s.CreationDate,
		UpdateDate:   s.UpdateDate,
	}
}

// CreateStack submits a compose descriptor as a new swarm stack.
func (c *Client) CreateStack(ctx context.Context, name, descriptor string) (domain.Stack, error) {
	payload, err := json.Marshal(createStackRequest{
		Name:             name,
		SwarmID:          c.cfg.SwarmID,
		StackFileContent: descriptor,
	})
	if err != nil {
		return domain.Stack{}, fmt.Errorf("encoding create stack request: %w", err)
	}

	url := fmt.Sprintf("%s/api/stacks?type=1&method=string&endpointId=%s", c.cfg.URL, c.cfg.EndpointID)

	body, err := c.do(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return domain.Stack{}, fmt.Errorf("failed to create stack: %w", err)
	}

	var stack stackResponse
	if err := json.Unmarshal(body, &stack); err != nil {
		return domain.Stack{}, fmt.Errorf("decoding create stack response: %w", err)
	}
	return stack.toDomain(), nil
}

// GetStack looks a stack up by name, case-insensitively. A missing stack is
// reported as a nil result, not an error.
func (c *Client) GetStack(ctx context.Context, name string) (*domain.Stack, error) {
	body, err := c.do(ctx, http.MethodGet, c.cfg.URL+"/api/stacks", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get stack: %w", err)
	}

	var stacks []stackResponse
	if err := json.Unmarshal(body, &stacks); err != nil {
		return nil, fmt.Errorf("decoding stack list: %w", err)
	}

	for _, s := range stacks {
		if strings.EqualFold(s.Name, name) {
			stack := s.toDomain()
			return &stack, nil
		}
	}
	return nil, nil
}

// DeleteStack removes a stack by its Portainer-assigned identifier.
func (c *Client) DeleteStack(ctx context.Context, id int64) error {
	url := fmt.Sprintf("%s/api/stacks/%d?endpointId=%s", c.cfg.URL, id, c.cfg.EndpointID)

	if _, err := c.do(ctx, http.MethodDelete, url, nil); err != nil {
		return fmt.Errorf("failed to delete stack: %w", err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, url string, body io.Reader) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("X-API-Key", c.cfg.APIToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling portainer: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &APIError{StatusCode: resp.StatusCode, Body: string(data)}
	}
	return data, nil
}
