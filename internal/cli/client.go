// Package cli is a thin cobra client for the podcastos daemon's HTTP API
// (spec.md §6): start, watch, approve, and cancel generation jobs from a
// terminal, grounded on the teacher's cobra root command and flag style.
package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/apresai/podcastos/internal/model"
)

// apiClient is a small wrapper over the HTTP API's job/episode endpoints.
type apiClient struct {
	baseURL string
	http    *http.Client
}

func newAPIClient(baseURL string) *apiClient {
	return &apiClient{baseURL: baseURL, http: &http.Client{Timeout: 30 * time.Second}}
}

type apiError struct {
	Status int
	Msg    string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.Status, e.Msg)
}

func (c *apiClient) do(method, path string, body any, out any) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		var errBody struct {
			Error string `json:"error"`
		}
		data, _ := io.ReadAll(resp.Body)
		_ = json.Unmarshal(data, &errBody)
		msg := errBody.Error
		if msg == "" {
			msg = string(data)
		}
		return &apiError{Status: resp.StatusCode, Msg: msg}
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

type createJobRequest struct {
	ProfileID string           `json:"profileId"`
	Options   model.JobOptions `json:"options"`
}

func (c *apiClient) startJob(profileID string, opts model.JobOptions) (string, error) {
	var out struct {
		JobID string `json:"jobId"`
	}
	err := c.do(http.MethodPost, "/jobs", createJobRequest{ProfileID: profileID, Options: opts}, &out)
	return out.JobID, err
}

func (c *apiClient) getStatus(jobID string) (model.StatusSnapshot, error) {
	var out model.StatusSnapshot
	err := c.do(http.MethodGet, "/jobs/"+jobID, nil, &out)
	return out, err
}

func (c *apiClient) cancelJob(jobID string) error {
	return c.do(http.MethodPost, "/jobs/"+jobID+"/cancel", nil, nil)
}

func (c *apiClient) approveJob(jobID string, editedScript *model.PodcastScript) error {
	if editedScript == nil {
		return c.do(http.MethodPost, "/jobs/"+jobID+"/approve", nil, nil)
	}
	return c.do(http.MethodPost, "/jobs/"+jobID+"/approve", editedScript, nil)
}
