package stream

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/claude/posetrack/internal/models"
)

// catalogExercise mirrors storage.CatalogExercise without importing the storage
// package (which would pull in pgx and other server-side dependencies).
type catalogExercise struct {
	ExerciseType string `json:"exercise_type"`
	Enabled      bool   `json:"enabled"`
}

// Client sends recorded sessions to the posetrack server over HTTP.
type Client struct {
	serverURL  string
	apiKey     string
	httpClient *http.Client
}

// NewClient creates a new HTTP client for the posetrack server.
func NewClient(serverURL, apiKey string) *Client {
	return &Client{
		serverURL: serverURL,
		apiKey:    apiKey,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

// post sends an authenticated POST with a JSON body.
func (c *Client) post(path string, body []byte) (*http.Response, error) {
	req, err := http.NewRequest(http.MethodPost, c.serverURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Key", c.apiKey)
	return c.httpClient.Do(req)
}

// FetchExercises retrieves the enabled exercise types from the server.
func (c *Client) FetchExercises() (map[string]bool, error) {
	resp, err := c.httpClient.Get(c.serverURL + "/api/v1/exercises")
	if err != nil {
		return nil, fmt.Errorf("fetching exercise catalog: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("catalog request failed (status %d): %s", resp.StatusCode, body)
	}

	var catalog []catalogExercise
	if err := json.NewDecoder(resp.Body).Decode(&catalog); err != nil {
		return nil, fmt.Errorf("decoding exercise catalog: %w", err)
	}

	enabled := make(map[string]bool, len(catalog))
	for _, e := range catalog {
		if e.Enabled {
			enabled[e.ExerciseType] = true
		}
	}
	return enabled, nil
}

// startResponse is the part of the session creation response the client uses.
type startResponse struct {
	ID string `json:"id"`
}

// StartSession opens a live tracking session on the server and returns its ID.
func (c *Client) StartSession(exercise string) (string, error) {
	body, err := json.Marshal(map[string]string{"exercise": exercise})
	if err != nil {
		return "", fmt.Errorf("marshaling start request: %w", err)
	}

	resp, err := c.post("/api/v1/sessions", body)
	if err != nil {
		return "", fmt.Errorf("starting session: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		respBody, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("start session failed (status %d): %s", resp.StatusCode, respBody)
	}

	var started startResponse
	if err := json.NewDecoder(resp.Body).Decode(&started); err != nil {
		return "", fmt.Errorf("decoding start response: %w", err)
	}
	return started.ID, nil
}

// SendFrames POSTs a frame batch to a live session.
// Retries up to 3 times with exponential backoff on failure.
func (c *Client) SendFrames(sessionID string, batch models.FrameBatch) error {
	data, err := json.Marshal(batch)
	if err != nil {
		return fmt.Errorf("marshaling frame batch: %w", err)
	}

	var lastErr error
	for attempt := range 3 {
		if attempt > 0 {
			time.Sleep(time.Duration(1<<uint(attempt-1)) * time.Second)
		}

		resp, err := c.post("/api/v1/sessions/"+sessionID+"/frames", data)
		if err != nil {
			lastErr = err
			continue
		}

		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()

		if resp.StatusCode == http.StatusOK {
			return nil
		}
		lastErr = fmt.Errorf("frame batch failed (status %d): %s", resp.StatusCode, body)
	}

	return fmt.Errorf("after 3 attempts: %w", lastErr)
}

// StopSession finalizes a live session, attaching optional notes.
func (c *Client) StopSession(sessionID, notes string) error {
	body, err := json.Marshal(map[string]string{"notes": notes})
	if err != nil {
		return fmt.Errorf("marshaling stop request: %w", err)
	}

	resp, err := c.post("/api/v1/sessions/"+sessionID+"/stop", body)
	if err != nil {
		return fmt.Errorf("stopping session: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("stop session failed (status %d): %s", resp.StatusCode, respBody)
	}
	return nil
}
