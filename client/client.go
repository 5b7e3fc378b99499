// Package client is the client data layer: a cache of the task list that
// only changes after the server has confirmed a mutation.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"nexto/models"
)

// APIError is any non-2xx answer from the server.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server returned %d", e.Status)
	}
	return fmt.Sprintf("server returned %d: %s", e.Status, e.Message)
}

// IsNotFound reports whether err is a 404 from the server.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound
}

type Client struct {
	baseURL string
	http    *http.Client

	mu      sync.RWMutex
	tasks   []models.Task
	loading bool
	err     error
}

func New(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
	}
}

// Tasks returns a copy of the cached list.
func (c *Client) Tasks() []models.Task {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]models.Task, len(c.tasks))
	copy(out, c.tasks)
	return out
}

// Find returns the cached task with the given id.
func (c *Client) Find(id string) (models.Task, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, t := range c.tasks {
		if t.ID == id {
			return t, true
		}
	}
	return models.Task{}, false
}

func (c *Client) Loading() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.loading
}

// Err is the error of the last failed call, nil after a successful one.
func (c *Client) Err() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.err
}

func (c *Client) ClearError() {
	c.mu.Lock()
	c.err = nil
	c.mu.Unlock()
}

func (c *Client) begin() {
	c.mu.Lock()
	c.loading = true
	c.mu.Unlock()
}

// finish records the outcome of a call and, when it succeeded, applies
// mutate to the cache under the same lock.
func (c *Client) finish(err error, mutate func()) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.loading = false
	c.err = err
	if err == nil && mutate != nil {
		mutate()
	}
	return err
}

// LoadAll replaces the cache with the server's list.
func (c *Client) LoadAll(ctx context.Context) error {
	c.begin()
	var tasks []models.Task
	err := c.do(ctx, http.MethodGet, "/tasks", nil, &tasks)
	return c.finish(err, func() {
		if tasks == nil {
			tasks = []models.Task{}
		}
		c.tasks = tasks
	})
}

// Add creates a task and appends the server's copy to the cache.
func (c *Client) Add(ctx context.Context, in models.TaskInput) (models.Task, error) {
	c.begin()
	var task models.Task
	err := c.do(ctx, http.MethodPost, "/tasks", in, &task)
	err = c.finish(err, func() {
		c.tasks = append(c.tasks, task)
	})
	return task, err
}

// Update sends patch and replaces the cached entry with the result.
func (c *Client) Update(ctx context.Context, id string, patch models.TaskPatch) (models.Task, error) {
	c.begin()
	var task models.Task
	err := c.do(ctx, http.MethodPut, "/tasks/"+url.PathEscape(id), patchBody(patch), &task)
	err = c.finish(err, func() {
		for i := range c.tasks {
			if c.tasks[i].ID == id {
				c.tasks[i] = task
				return
			}
		}
	})
	return task, err
}

// Remove deletes a task and drops it from the cache.
func (c *Client) Remove(ctx context.Context, id string) error {
	c.begin()
	err := c.do(ctx, http.MethodDelete, "/tasks/"+url.PathEscape(id), nil, nil)
	return c.finish(err, func() {
		for i := range c.tasks {
			if c.tasks[i].ID == id {
				c.tasks = append(c.tasks[:i:i], c.tasks[i+1:]...)
				return
			}
		}
	})
}

// ToggleComplete flips the cached completed flag through Update.
func (c *Client) ToggleComplete(ctx context.Context, id string) (models.Task, error) {
	current, ok := c.Find(id)
	if !ok {
		err := &APIError{Status: http.StatusNotFound, Message: "task not in cache"}
		c.mu.Lock()
		c.err = err
		c.mu.Unlock()
		return models.Task{}, err
	}
	completed := !current.Completed
	return c.Update(ctx, id, models.TaskPatch{Completed: &completed})
}

// ClearCompleted removes the cached completed tasks one at a time. It stops
// at the first failure; tasks not yet removed stay in place.
func (c *Client) ClearCompleted(ctx context.Context) (int, error) {
	var ids []string
	for _, t := range c.Tasks() {
		if t.Completed {
			ids = append(ids, t.ID)
		}
	}

	removed := 0
	for _, id := range ids {
		if err := c.Remove(ctx, id); err != nil {
			return removed, err
		}
		removed++
	}
	return removed, nil
}

// ForgotPassword asks the server to send reset instructions to email.
func (c *Client) ForgotPassword(ctx context.Context, email string) (string, error) {
	var out struct {
		Message string `json:"message"`
	}
	err := c.do(ctx, http.MethodPost, "/auth/forgot-password", map[string]string{"email": email}, &out)
	return out.Message, err
}

func patchBody(p models.TaskPatch) map[string]any {
	body := map[string]any{}
	if p.Title != nil {
		body["title"] = *p.Title
	}
	if p.Description != nil {
		body["description"] = *p.Description
	}
	if p.Completed != nil {
		body["completed"] = *p.Completed
	}
	if p.Priority != nil {
		body["priority"] = *p.Priority
	}
	switch {
	case p.ClearDueDate:
		body["dueDate"] = nil
	case p.DueDate != nil:
		body["dueDate"] = p.DueDate.String()
	}
	return body
}

func (c *Client) do(ctx context.Context, method, path string, in any, out any) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var payload struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&payload)
		return &APIError{Status: resp.StatusCode, Message: payload.Error}
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
