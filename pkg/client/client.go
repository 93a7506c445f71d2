package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cuemby/guildsync/pkg/api"
	"github.com/cuemby/guildsync/pkg/types"
)

// DefaultTimeout bounds each request to the daemon
const DefaultTimeout = 5 * time.Second

// Client talks to the admin API of a running daemon
type Client struct {
	base string
	http *http.Client
}

// NewClient creates a client for the daemon at addr (host:port or a URL)
func NewClient(addr string) *Client {
	if !strings.Contains(addr, "://") {
		addr = "http://" + addr
	}
	return &Client{
		base: strings.TrimSuffix(addr, "/"),
		http: &http.Client{Timeout: DefaultTimeout},
	}
}

// Sync requests a pass of family, or of every family when family is empty
func (c *Client) Sync(ctx context.Context, family types.Family) ([]types.Family, error) {
	path := "/v1/sync"
	if family != "" {
		path += "/" + url.PathEscape(string(family))
	}
	var resp api.SyncResponse
	if err := c.do(ctx, http.MethodPost, path, http.StatusAccepted, &resp); err != nil {
		return nil, err
	}
	return resp.Requested, nil
}

// Plan returns the dry run of one family's next pass
func (c *Client) Plan(ctx context.Context, family types.Family) (*api.PlanResponse, error) {
	var resp api.PlanResponse
	if err := c.do(ctx, http.MethodGet, "/v1/plan/"+url.PathEscape(string(family)), http.StatusOK, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ListPasses returns recorded passes, newest first
func (c *Client) ListPasses(ctx context.Context, family types.Family, limit int) ([]*types.PassReport, error) {
	q := url.Values{}
	if family != "" {
		q.Set("family", string(family))
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	path := "/v1/passes"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var resp api.PassesResponse
	if err := c.do(ctx, http.MethodGet, path, http.StatusOK, &resp); err != nil {
		return nil, err
	}
	return resp.Passes, nil
}

func (c *Client) do(ctx context.Context, method, path string, want int, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("failed to reach daemon: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != want {
		var body api.ErrorResponse
		_ = json.NewDecoder(resp.Body).Decode(&body)
		if body.Error == "" {
			body.Error = http.StatusText(resp.StatusCode)
		}
		return &StatusError{Code: resp.StatusCode, Message: body.Error}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// StatusError is returned when the daemon answers with an unexpected status
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("daemon returned %d: %s", e.Code, e.Message)
}
