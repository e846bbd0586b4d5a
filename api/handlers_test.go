package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"golang.org/x/crypto/bcrypt"

	"todosync/domain"
	"todosync/storage"
)

type fakeStore struct {
	tasks map[string]domain.Task
	users map[string]string

	createErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{tasks: map[string]domain.Task{}, users: map[string]string{}}
}

func (f *fakeStore) CreateTask(_ context.Context, t domain.Task) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.tasks[t.ID] = t
	return nil
}

func (f *fakeStore) DeleteTask(_ context.Context, id, owner string) error {
	t, ok := f.tasks[id]
	if !ok || t.Owner != owner {
		return storage.ErrTaskNotFound
	}
	delete(f.tasks, id)
	return nil
}

func (f *fakeStore) UpdateContent(_ context.Context, id, owner, content string) error {
	t, ok := f.tasks[id]
	if !ok || t.Owner != owner {
		return storage.ErrTaskNotFound
	}
	t.Content = content
	f.tasks[id] = t
	return nil
}

func (f *fakeStore) UpdateDone(_ context.Context, id, owner string, done bool) error {
	t, ok := f.tasks[id]
	if !ok || t.Owner != owner {
		return storage.ErrTaskNotFound
	}
	t.Done = done
	f.tasks[id] = t
	return nil
}

func (f *fakeStore) ListByOwner(_ context.Context, owner string) ([]domain.Task, error) {
	tasks := []domain.Task{}
	for _, t := range f.tasks {
		if t.Owner == owner {
			tasks = append(tasks, t)
		}
	}
	return tasks, nil
}

func (f *fakeStore) AddUser(_ context.Context, email, hash string) error {
	if _, ok := f.users[email]; ok {
		return storage.ErrUserExists
	}
	f.users[email] = hash
	return nil
}

func (f *fakeStore) PasswordHash(_ context.Context, email string) (string, error) {
	hash, ok := f.users[email]
	if !ok {
		return "", storage.ErrUserNotFound
	}
	return hash, nil
}

func (f *fakeStore) DeleteUser(_ context.Context, email string) error {
	if _, ok := f.users[email]; !ok {
		return storage.ErrUserNotFound
	}
	delete(f.users, email)
	for id, t := range f.tasks {
		if t.Owner == email {
			delete(f.tasks, id)
		}
	}
	return nil
}

func newTestServer(t *testing.T) (*echo.Echo, *fakeStore, *Auth) {
	t.Helper()
	e := echo.New()
	store := newFakeStore()
	auth := NewAuth([]byte("test-secret"), time.Hour)
	Register(e, store, auth, NewHub(nil, nil), nil)
	return e, store, auth
}

func doJSON(e *echo.Echo, method, path, token, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestRegisterLoginFlow(t *testing.T) {
	e, store, auth := newTestServer(t)

	rec := doJSON(e, http.MethodPost, "/api/register", "", `{"email":"a@example.com","password":"pw"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("register: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if err := bcrypt.CompareHashAndPassword([]byte(store.users["a@example.com"]), []byte("pw")); err != nil {
		t.Fatalf("stored hash does not match password: %v", err)
	}

	rec = doJSON(e, http.MethodPost, "/api/login", "", `{"email":"a@example.com","password":"pw"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("login: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("parse login response: %v", err)
	}
	email, err := auth.Verify(resp["token"])
	if err != nil || email != "a@example.com" {
		t.Fatalf("token did not verify: %v, %s", err, email)
	}
}

func TestRegisterRejectsMalformedEmail(t *testing.T) {
	e, store, _ := newTestServer(t)
	rec := doJSON(e, http.MethodPost, "/api/register", "", `{"email":"not-an-email","password":"pw"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if len(store.users) != 0 {
		t.Fatal("store touched despite validation failure")
	}
}

func TestRegisterDuplicate(t *testing.T) {
	e, _, _ := newTestServer(t)
	doJSON(e, http.MethodPost, "/api/register", "", `{"email":"a@example.com","password":"pw"}`)
	rec := doJSON(e, http.MethodPost, "/api/register", "", `{"email":"a@example.com","password":"pw"}`)
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
}

func TestLoginWrongPassword(t *testing.T) {
	e, _, _ := newTestServer(t)
	doJSON(e, http.MethodPost, "/api/register", "", `{"email":"a@example.com","password":"pw"}`)
	rec := doJSON(e, http.MethodPost, "/api/login", "", `{"email":"a@example.com","password":"nope"}`)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	rec = doJSON(e, http.MethodPost, "/api/login", "", `{"email":"ghost@example.com","password":"pw"}`)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for unknown user, got %d", rec.Code)
	}
}

func TestTaskEndpointsRequireAuth(t *testing.T) {
	e, _, _ := newTestServer(t)
	for _, tc := range []struct{ method, path string }{
		{http.MethodGet, "/api/tasks"},
		{http.MethodPost, "/api/tasks"},
		{http.MethodPatch, "/api/tasks/t1"},
		{http.MethodDelete, "/api/tasks/t1"},
		{http.MethodDelete, "/api/users/me"},
	} {
		rec := doJSON(e, tc.method, tc.path, "", `{}`)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("%s %s: expected 401, got %d", tc.method, tc.path, rec.Code)
		}
	}
}

func TestTaskCRUD(t *testing.T) {
	e, store, auth := newTestServer(t)
	token, err := auth.Issue("a@example.com")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	rec := doJSON(e, http.MethodPost, "/api/tasks", token, `{"id":"t1","content":"buy milk","done":false}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("create: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if got := store.tasks["t1"]; got.Owner != "a@example.com" || got.Content != "buy milk" {
		t.Fatalf("unexpected stored task %+v", got)
	}

	rec = doJSON(e, http.MethodPatch, "/api/tasks/t1", token, `{"content":"buy oat milk"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("patch content: expected 200, got %d", rec.Code)
	}
	rec = doJSON(e, http.MethodPatch, "/api/tasks/t1", token, `{"done":true}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("patch done: expected 200, got %d", rec.Code)
	}
	if got := store.tasks["t1"]; got.Content != "buy oat milk" || !got.Done {
		t.Fatalf("unexpected task after patches %+v", got)
	}

	rec = doJSON(e, http.MethodGet, "/api/tasks", token, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("list: expected 200, got %d", rec.Code)
	}
	var tasks []domain.Task
	if err := json.Unmarshal(rec.Body.Bytes(), &tasks); err != nil {
		t.Fatalf("parse list: %v", err)
	}
	if len(tasks) != 1 || tasks[0].ID != "t1" {
		t.Fatalf("unexpected listing %+v", tasks)
	}

	rec = doJSON(e, http.MethodDelete, "/api/tasks/t1", token, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("delete: expected 200, got %d", rec.Code)
	}
	rec = doJSON(e, http.MethodDelete, "/api/tasks/t1", token, "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("second delete: expected 404, got %d", rec.Code)
	}
}

func TestPatchRejectsAmbiguousBody(t *testing.T) {
	e, store, auth := newTestServer(t)
	token, _ := auth.Issue("a@example.com")
	store.tasks["t1"] = domain.Task{ID: "t1", Content: "x", Owner: "a@example.com"}

	for _, body := range []string{`{}`, `{"content":"y","done":true}`} {
		rec := doJSON(e, http.MethodPatch, "/api/tasks/t1", token, body)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("body %s: expected 400, got %d", body, rec.Code)
		}
	}
}

func TestCreateTaskRejectsEmptyContent(t *testing.T) {
	e, store, auth := newTestServer(t)
	token, _ := auth.Issue("a@example.com")
	rec := doJSON(e, http.MethodPost, "/api/tasks", token, `{"id":"t1","content":""}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if len(store.tasks) != 0 {
		t.Fatal("store touched despite validation failure")
	}
}

func TestDeleteAccountRemovesTasks(t *testing.T) {
	e, store, auth := newTestServer(t)
	token, _ := auth.Issue("a@example.com")
	store.users["a@example.com"] = "hash"
	store.tasks["t1"] = domain.Task{ID: "t1", Content: "x", Owner: "a@example.com"}

	rec := doJSON(e, http.MethodDelete, "/api/users/me", token, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if len(store.tasks) != 0 || len(store.users) != 0 {
		t.Fatalf("account data survived deletion: %+v %+v", store.users, store.tasks)
	}
}
