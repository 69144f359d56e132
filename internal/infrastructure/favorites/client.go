package favorites

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client talks to the remote favorites API:
//
//	GET    {base}/favorites
//	POST   {base}/favorites/add?marketCode={symbol}
//	DELETE {base}/favorites/remove?marketCode={symbol}
type Client struct {
	baseURL string
	client  *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *Client) List(ctx context.Context) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/favorites", nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("favorites list: status %d: %s", resp.StatusCode, string(body))
	}

	var symbols []string
	if err := json.NewDecoder(resp.Body).Decode(&symbols); err != nil {
		return nil, fmt.Errorf("favorites list: decode: %w", err)
	}
	return symbols, nil
}

func (c *Client) Add(ctx context.Context, symbol string) error {
	return c.mutate(ctx, http.MethodPost, "/favorites/add", symbol)
}

func (c *Client) Remove(ctx context.Context, symbol string) error {
	return c.mutate(ctx, http.MethodDelete, "/favorites/remove", symbol)
}

func (c *Client) mutate(ctx context.Context, method, path, symbol string) error {
	endpoint := fmt.Sprintf("%s%s?marketCode=%s", c.baseURL, path, url.QueryEscape(symbol))

	req, err := http.NewRequestWithContext(ctx, method, endpoint, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 400 {
		return fmt.Errorf("favorites %s %s: status %d", method, symbol, resp.StatusCode)
	}
	return nil
}
