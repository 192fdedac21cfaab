// Package render talks to the external ZPL raster service used for previews.
// ZPL interpretation is delegated wholesale: the service receives the command
// text and returns a PNG of the label.
package render

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Client renders ZPL commands via a Labelary-compatible HTTP API.
type Client struct {
	baseURL    string
	density    string
	httpClient *http.Client
}

// NewClient builds a renderer client. The density segment ("8dpmm" for 203dpi
// printers) is part of the service's URL scheme.
func NewClient(baseURL, density string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		density:    strings.TrimSpace(density),
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

// Render posts the command and returns the PNG bytes for the first label.
// Width and height are in printer dots; the service expects inches at the
// given density, so they are converted here (203 dots per inch at 8dpmm).
func (c *Client) Render(ctx context.Context, command string, widthDots, heightDots int) ([]byte, error) {
	if c.baseURL == "" {
		return nil, fmt.Errorf("renderer base url missing")
	}

	widthIn := dotsToInches(widthDots)
	heightIn := dotsToInches(heightDots)
	targetURL := fmt.Sprintf("%s/v1/printers/%s/labels/%.2fx%.2f/0/", c.baseURL, c.density, widthIn, heightIn)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, targetURL, bytes.NewBufferString(command))
	if err != nil {
		return nil, fmt.Errorf("build render request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "image/png")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request label render: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 8*1024))
		return nil, fmt.Errorf("label render status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read rendered label: %w", err)
	}
	return data, nil
}

const dotsPerInch = 203.0

func dotsToInches(dots int) float64 {
	if dots <= 0 {
		// The service rejects zero-sized labels; fall back to a 4x6 default
		// dimension of 4 inches.
		return 4
	}
	return float64(dots) / dotsPerInch
}
