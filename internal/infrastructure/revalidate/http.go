package revalidate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const secretHeader = "X-Revalidate-Secret"

// HTTPInvalidator calls the front-end's on-demand revalidation webhook.
type HTTPInvalidator struct {
	URL    string
	Secret string
	Client *http.Client
}

func (h *HTTPInvalidator) InvalidatePath(ctx context.Context, path string) error {
	if h.URL == "" {
		return fmt.Errorf("revalidate: REVALIDATE_URL is not set")
	}
	client := h.Client
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Second}
	}

	body, _ := json.Marshal(map[string]string{"path": path})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.URL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if h.Secret != "" {
		req.Header.Set(secretHeader, h.Secret)
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("revalidate request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("revalidate error: status %d body: %s", resp.StatusCode, respBody)
	}
	return nil
}
