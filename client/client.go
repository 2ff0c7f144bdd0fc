// HTTP client for the Imagen API, plus a poller that drives a generation
// from submission to a terminal state the same way the web frontend does.
package client

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strconv"
	"time"

	"imagen/types"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const userAgent = "Imagen/v1.0.0"

type Client struct {
	BaseURL string

	// Token is sent as a bearer token on authenticated endpoints
	Token string

	HTTP *http.Client
}

func New(baseURL, token string) *Client {
	return &Client{
		BaseURL: baseURL,
		Token:   token,
		HTTP: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// APIError is a non-2xx response from the server
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	msg := e.Message

	if msg == "" {
		msg = http.StatusText(e.StatusCode)
	}

	return "api error " + strconv.Itoa(e.StatusCode) + ": " + msg
}

// Generate submits a prompt and returns the queued task. The server
// responds before the worker handoff happens, so the returned task is
// always pending.
func (c *Client) Generate(ctx context.Context, prompt string) (*types.QueuedTask, error) {
	var queued types.QueuedTask

	err := c.do(ctx, "POST", "/generate", types.GenerateRequest{Prompt: prompt}, &queued)

	if err != nil {
		return nil, err
	}

	return &queued, nil
}

// Status fetches the current state of a task
func (c *Client) Status(ctx context.Context, taskID string) (*types.Task, error) {
	var task types.Task

	err := c.do(ctx, "GET", "/status/"+taskID, nil, &task)

	if err != nil {
		return nil, err
	}

	return &task, nil
}

// History fetches the callers archived generations, newest first
func (c *Client) History(ctx context.Context) (*types.HistoryList, error) {
	var list types.HistoryList

	err := c.do(ctx, "GET", "/history", nil, &list)

	if err != nil {
		return nil, err
	}

	return &list, nil
}

func (c *Client) do(ctx context.Context, method, path string, reqBody any, dst any) error {
	var body io.Reader

	if reqBody != nil {
		b, err := json.Marshal(reqBody)

		if err != nil {
			return err
		}

		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)

	if err != nil {
		return err
	}

	req.Header.Set("User-Agent", userAgent)

	if reqBody != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}

	resp, err := c.HTTP.Do(req)

	if err != nil {
		return err
	}

	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)

	if err != nil {
		return err
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var apiErr types.ApiError

		// Best effort decode, the body may not be JSON at all
		json.Unmarshal(data, &apiErr)

		return &APIError{StatusCode: resp.StatusCode, Message: apiErr.Message}
	}

	if dst == nil {
		return nil
	}

	return json.Unmarshal(data, dst)
}
