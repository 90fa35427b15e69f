package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"video-analyzer/internal/domain/model"
	"video-analyzer/internal/infra/api/apiv1"
)

// apiClient talks to the /api/v1 job endpoints.
type apiClient struct {
	base string
	http *http.Client
}

func newAPIClient(base string) *apiClient {
	return &apiClient{base: strings.TrimRight(base, "/"), http: &http.Client{Timeout: 30 * time.Second}}
}

func (c *apiClient) Submit(ctx context.Context, url string) (int64, error) {
	body, _ := json.Marshal(apiv1.SubmitRequest{URL: url})
	var out apiv1.SubmitResponse
	if err := c.do(ctx, http.MethodPost, "/api/v1/jobs", body, http.StatusAccepted, &out); err != nil {
		return 0, err
	}
	return out.JobID, nil
}

func (c *apiClient) Get(ctx context.Context, id int64) (*model.Job, error) {
	var job model.Job
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/v1/jobs/%d", id), nil, http.StatusOK, &job); err != nil {
		return nil, err
	}
	return &job, nil
}

func (c *apiClient) List(ctx context.Context, limit int) ([]*model.Job, error) {
	var out apiv1.ListResponse
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/v1/jobs?limit=%d", limit), nil, http.StatusOK, &out); err != nil {
		return nil, err
	}
	return out.Items, nil
}

func (c *apiClient) Delete(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/api/v1/jobs/%d", id), nil, http.StatusOK, nil)
}

func (c *apiClient) do(ctx context.Context, method, path string, body []byte, want int, out any) error {
	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, rd)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return err
	}
	if resp.StatusCode != want {
		var e apiv1.ErrorResponse
		if json.Unmarshal(data, &e) == nil && e.Error != "" {
			return fmt.Errorf("%s (HTTP %d)", e.Error, resp.StatusCode)
		}
		return fmt.Errorf("unexpected HTTP %d", resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(data, out)
}
