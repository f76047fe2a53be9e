// Package launcher talks to the external execution daemon that runs the
// annotation engine for a job and reports status asynchronously.
package launcher

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

type Client struct {
	SubmitURL string
	HTTP      *http.Client
}

func NewClient(submitURL string, timeout time.Duration) *Client {
	return &Client{
		SubmitURL: submitURL,
		HTTP: &http.Client{
			Timeout: timeout,
		},
	}
}

// SubmissionRequest is the daemon's job description: which directory to run
// in, which files to stage in and out, and where to PUT status updates.
type SubmissionRequest struct {
	JobDir            string   `json:"jobdir"`
	Executable        string   `json:"executable"`
	Prestaged         []string `json:"prestaged"`
	Poststaged        []string `json:"poststaged"`
	Stderr            string   `json:"stderr"`
	Stdout            string   `json:"stdout"`
	Arguments         []string `json:"arguments"`
	StatusCallbackURL string   `json:"status_callback_url"`
}

// Submit posts a job to the daemon and returns the daemon side resource URL
// from the Location header, needed later for cancellation.
func (c *Client) Submit(ctx context.Context, body SubmissionRequest) (string, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.SubmitURL, bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("launcher returned status %d", resp.StatusCode)
	}

	location := resp.Header.Get("Location")
	if location == "" {
		return "", fmt.Errorf("launcher response missing Location header")
	}
	return location, nil
}

// Cancel issues a best effort DELETE against the daemon job resource. The
// authoritative state change arrives later via the status callback.
func (c *Client) Cancel(ctx context.Context, launcherURL string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, launcherURL, nil)
	if err != nil {
		return err
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
	return nil
}
