package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"testing"
	"time"

	"taskboard/backend/internal/config"
	authdomain "taskboard/backend/internal/domain/auth"
	taskdomain "taskboard/backend/internal/domain/task"
	"taskboard/backend/internal/infrastructure/token"
	authusecase "taskboard/backend/internal/usecase/auth"
	taskusecase "taskboard/backend/internal/usecase/task"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memUserRepo struct {
	users map[string]*authdomain.User
}

func (r *memUserRepo) Create(_ context.Context, user *authdomain.User) error {
	for _, u := range r.users {
		if u.Email == user.Email {
			return authdomain.ErrEmailExists
		}
	}
	u := *user
	r.users[u.ID] = &u
	return nil
}

func (r *memUserRepo) GetByEmail(_ context.Context, email string) (*authdomain.User, error) {
	for _, u := range r.users {
		if u.Email == email {
			copy := *u
			return &copy, nil
		}
	}
	return nil, authdomain.ErrUserNotFound
}

func (r *memUserRepo) GetByID(_ context.Context, id string) (*authdomain.User, error) {
	u, ok := r.users[id]
	if !ok {
		return nil, authdomain.ErrUserNotFound
	}
	copy := *u
	return &copy, nil
}

type memTaskRepo struct {
	tasks map[string]*taskdomain.Task
	seq   int
}

func (r *memTaskRepo) Create(_ context.Context, task *taskdomain.Task) error {
	t := *task
	// Creation timestamps can collide within a test run; keep insertion
	// order stable by spacing them out.
	r.seq++
	t.CreatedAt = t.CreatedAt.Add(time.Duration(r.seq) * time.Millisecond)
	r.tasks[t.ID] = &t
	*task = t
	return nil
}

func (r *memTaskRepo) GetByID(_ context.Context, id string) (*taskdomain.Task, error) {
	t, ok := r.tasks[id]
	if !ok {
		return nil, taskdomain.ErrNotFound
	}
	copy := *t
	return &copy, nil
}

func (r *memTaskRepo) ListByUser(_ context.Context, userID string) ([]*taskdomain.Task, error) {
	var out []*taskdomain.Task
	for _, t := range r.tasks {
		if t.UserID == userID {
			copy := *t
			out = append(out, &copy)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *memTaskRepo) Update(_ context.Context, task *taskdomain.Task) error {
	if _, ok := r.tasks[task.ID]; !ok {
		return taskdomain.ErrNotFound
	}
	t := *task
	r.tasks[t.ID] = &t
	return nil
}

func (r *memTaskRepo) Delete(_ context.Context, id string) error {
	if _, ok := r.tasks[id]; !ok {
		return taskdomain.ErrNotFound
	}
	delete(r.tasks, id)
	return nil
}

const testJWTSecret = "test-secret"

func testConfig() config.Config {
	return config.Config{
		HTTPPort:        "0",
		JWTSecret:       testJWTSecret,
		JWTIssuer:       "taskboard-test",
		JWTExpiry:       time.Hour,
		AllowedOrigins:  []string{"*"},
		ReadTimeoutSec:  5,
		WriteTimeoutSec: 5,
		IdleTimeoutSec:  5,
		AuthRateLimit:   1000,
		AuthRateBurst:   1000,
	}
}

func newServerWith(t *testing.T, userRepo authdomain.UserRepository, taskRepo taskdomain.Repository) *Server {
	t.Helper()

	cfg := testConfig()
	tokenManager := token.NewJWTManager(cfg.JWTSecret, cfg.JWTExpiry, cfg.JWTIssuer)
	authService := authusecase.NewService(userRepo, tokenManager)
	taskService := taskusecase.NewService(taskRepo)
	s := NewServer(cfg, authService, taskService)
	t.Cleanup(func() { _ = s.Shutdown(context.Background()) })
	return s
}

func newTestServer(t *testing.T) (*Server, *memTaskRepo) {
	t.Helper()

	userRepo := &memUserRepo{users: make(map[string]*authdomain.User)}
	taskRepo := &memTaskRepo{tasks: make(map[string]*taskdomain.Task)}
	return newServerWith(t, userRepo, taskRepo), taskRepo
}

func doRequest(t *testing.T, s *Server, method, path, bearer string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func registerAndLogin(t *testing.T, s *Server, username, email, password string) string {
	t.Helper()

	rec := doRequest(t, s, http.MethodPost, "/api/auth/register", "", map[string]string{
		"username": username, "email": email, "password": password,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = doRequest(t, s, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email": email, "password": password,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	return decodeBody[map[string]string](t, rec)["token"]
}

func TestHealthEndpoint(t *testing.T) {
	t.Parallel()
	s, _ := newTestServer(t)

	rec := doRequest(t, s, http.MethodGet, "/api/test", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Hello from the backend!", decodeBody[map[string]string](t, rec)["message"])
}

func TestRegisterDuplicateEmail(t *testing.T) {
	t.Parallel()
	s, _ := newTestServer(t)

	payload := map[string]string{"username": "alice", "email": "alice@x.com", "password": "secret1"}
	rec := doRequest(t, s, http.MethodPost, "/api/auth/register", "", payload)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doRequest(t, s, http.MethodPost, "/api/auth/register", "", payload)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestLoginFailureShapeIsUniform(t *testing.T) {
	t.Parallel()
	s, _ := newTestServer(t)
	registerAndLogin(t, s, "alice", "alice@x.com", "secret1")

	wrongPassword := doRequest(t, s, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email": "alice@x.com", "password": "nope",
	})
	unknownEmail := doRequest(t, s, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email": "nobody@x.com", "password": "secret1",
	})

	assert.Equal(t, http.StatusUnauthorized, wrongPassword.Code)
	assert.Equal(t, http.StatusUnauthorized, unknownEmail.Code)
	assert.Equal(t, wrongPassword.Body.String(), unknownEmail.Body.String())
}

func TestTasksRequireAuthentication(t *testing.T) {
	t.Parallel()
	s, _ := newTestServer(t)

	for _, tc := range []struct{ method, path string }{
		{http.MethodGet, "/api/tasks"},
		{http.MethodPost, "/api/tasks"},
		{http.MethodPut, "/api/tasks/some-id"},
		{http.MethodPatch, "/api/tasks/some-id"},
		{http.MethodDelete, "/api/tasks/some-id"},
	} {
		rec := doRequest(t, s, tc.method, tc.path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, "%s %s", tc.method, tc.path)
	}
}

// failingUserRepo can be switched into a degraded mode where the per-request
// user lookup fails like a storage outage would.
type failingUserRepo struct {
	memUserRepo
	getByIDErr error
}

func (r *failingUserRepo) GetByID(ctx context.Context, id string) (*authdomain.User, error) {
	if r.getByIDErr != nil {
		return nil, r.getByIDErr
	}
	return r.memUserRepo.GetByID(ctx, id)
}

func TestStorageFailureDuringAuthIsInternalError(t *testing.T) {
	t.Parallel()

	userRepo := &failingUserRepo{memUserRepo: memUserRepo{users: make(map[string]*authdomain.User)}}
	taskRepo := &memTaskRepo{tasks: make(map[string]*taskdomain.Task)}
	s := newServerWith(t, userRepo, taskRepo)

	aliceToken := registerAndLogin(t, s, "alice", "alice@x.com", "secret1")

	userRepo.getByIDErr = errors.New("connection refused")

	rec := doRequest(t, s, http.MethodGet, "/api/tasks", aliceToken, nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code,
		"a storage outage must not read as a bad token")
	assert.Equal(t, "internal server error", decodeBody[map[string]string](t, rec)["error"])
}

func TestExpiredTokenRejected(t *testing.T) {
	t.Parallel()
	s, _ := newTestServer(t)
	registerAndLogin(t, s, "alice", "alice@x.com", "secret1")

	// Same secret, negative validity window: expired the moment it is minted.
	expired, err := token.NewJWTManager(testJWTSecret, -time.Minute, "taskboard-test").Generate("any")
	require.NoError(t, err)

	rec := doRequest(t, s, http.MethodGet, "/api/tasks", expired, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestTaskLifecycleScenario(t *testing.T) {
	t.Parallel()
	s, taskRepo := newTestServer(t)

	aliceToken := registerAndLogin(t, s, "alice", "alice@x.com", "secret1")
	bobToken := registerAndLogin(t, s, "bob", "bob@x.com", "secret2")

	// Alice creates a task.
	rec := doRequest(t, s, http.MethodPost, "/api/tasks", aliceToken, map[string]string{"text": "buy milk"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	created := decodeBody[taskdomain.Task](t, rec)
	assert.Equal(t, "buy milk", created.Text)
	assert.False(t, created.IsCompleted)
	require.NotEmpty(t, created.ID)

	// PUT toggles completion.
	rec = doRequest(t, s, http.MethodPut, "/api/tasks/"+created.ID, aliceToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decodeBody[taskdomain.Task](t, rec).IsCompleted)

	// PATCH with empty text is a validation error.
	rec = doRequest(t, s, http.MethodPatch, "/api/tasks/"+created.ID, aliceToken, map[string]string{"text": ""})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// PATCH with real text succeeds.
	rec = doRequest(t, s, http.MethodPatch, "/api/tasks/"+created.ID, aliceToken, map[string]string{"text": "buy oat milk"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "buy oat milk", decodeBody[taskdomain.Task](t, rec).Text)

	// Bob cannot see Alice's task.
	rec = doRequest(t, s, http.MethodGet, "/api/tasks", bobToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decodeBody[[]taskdomain.Task](t, rec))

	// Bob cannot mutate or delete it either.
	for _, tc := range []struct{ method string }{
		{http.MethodPut}, {http.MethodPatch}, {http.MethodDelete},
	} {
		rec = doRequest(t, s, tc.method, "/api/tasks/"+created.ID, bobToken, map[string]string{"text": "hijack"})
		assert.Equal(t, http.StatusForbidden, rec.Code, tc.method)
	}
	require.Contains(t, taskRepo.tasks, created.ID, "task must survive foreign delete attempts")

	// Alice deletes her task.
	rec = doRequest(t, s, http.MethodDelete, "/api/tasks/"+created.ID, aliceToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Task removed", decodeBody[map[string]string](t, rec)["msg"])

	rec = doRequest(t, s, http.MethodDelete, "/api/tasks/"+created.ID, aliceToken, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListNewestFirst(t *testing.T) {
	t.Parallel()
	s, _ := newTestServer(t)
	aliceToken := registerAndLogin(t, s, "alice", "alice@x.com", "secret1")

	for i := 1; i <= 3; i++ {
		rec := doRequest(t, s, http.MethodPost, "/api/tasks", aliceToken, map[string]string{
			"text": fmt.Sprintf("task %d", i),
		})
		require.Equal(t, http.StatusOK, rec.Code)
	}

	rec := doRequest(t, s, http.MethodGet, "/api/tasks", aliceToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	tasks := decodeBody[[]taskdomain.Task](t, rec)
	require.Len(t, tasks, 3)
	assert.Equal(t, "task 3", tasks[0].Text)
	assert.Equal(t, "task 2", tasks[1].Text)
	assert.Equal(t, "task 1", tasks[2].Text)
}

func TestUnknownTaskIDIsNotFound(t *testing.T) {
	t.Parallel()
	s, _ := newTestServer(t)
	aliceToken := registerAndLogin(t, s, "alice", "alice@x.com", "secret1")

	rec := doRequest(t, s, http.MethodPut, "/api/tasks/no-such-id", aliceToken, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
