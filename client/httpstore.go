package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"todosync/domain"
)

// HTTPStore implements Store against the server's REST surface. The bearer
// token binds every call to the session's account.
type HTTPStore struct {
	BaseURL string
	Bearer  string
	HTTP    *http.Client
}

// NewHTTPStore creates a store client.
func NewHTTPStore(baseURL, bearer string) *HTTPStore {
	return &HTTPStore{BaseURL: baseURL, Bearer: bearer, HTTP: &http.Client{}}
}

func (s *HTTPStore) do(ctx context.Context, method, path string, body, out any) error {
	buf := new(bytes.Buffer)
	if body != nil {
		if err := json.NewEncoder(buf).Encode(body); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, s.BaseURL+path, buf)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if s.Bearer != "" {
		req.Header.Set("Authorization", "Bearer "+s.Bearer)
	}
	resp, err := s.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s %s: unexpected status %d", method, path, resp.StatusCode)
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return err
		}
	}
	return nil
}

// Create persists a new task.
func (s *HTTPStore) Create(ctx context.Context, t domain.Task) error {
	return s.do(ctx, http.MethodPost, "/api/tasks", t, nil)
}

// Delete removes a task by id.
func (s *HTTPStore) Delete(ctx context.Context, taskID string) error {
	return s.do(ctx, http.MethodDelete, "/api/tasks/"+taskID, nil, nil)
}

// UpdateContent updates only the content field.
func (s *HTTPStore) UpdateContent(ctx context.Context, taskID, content string) error {
	return s.do(ctx, http.MethodPatch, "/api/tasks/"+taskID, map[string]string{"content": content}, nil)
}

// UpdateDone updates only the done field.
func (s *HTTPStore) UpdateDone(ctx context.Context, taskID string, done bool) error {
	return s.do(ctx, http.MethodPatch, "/api/tasks/"+taskID, map[string]bool{"done": done}, nil)
}

// ListByOwner fetches the caller's full task list. The owner argument is
// implied by the bearer token; it is accepted to satisfy the Store interface.
func (s *HTTPStore) ListByOwner(ctx context.Context, _ string) ([]domain.Task, error) {
	var tasks []domain.Task
	if err := s.do(ctx, http.MethodGet, "/api/tasks", nil, &tasks); err != nil {
		return nil, err
	}
	return tasks, nil
}
