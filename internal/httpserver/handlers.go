package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	authdomain "taskboard/backend/internal/domain/auth"
	taskdomain "taskboard/backend/internal/domain/task"
)

func (s *Server) registerRoutes() {
	limited := s.authLimiter.middleware

	s.router.Handle("/api/test", http.HandlerFunc(s.handleTest))
	s.router.Handle("/api/auth/register", limited(http.HandlerFunc(s.handleRegister)))
	s.router.Handle("/api/auth/login", limited(http.HandlerFunc(s.handleLogin)))

	authenticated := s.authMiddleware
	s.router.Handle("/api/tasks", authenticated(http.HandlerFunc(s.handleTasks)))
	s.router.Handle("/api/tasks/", authenticated(http.HandlerFunc(s.handleTaskByID)))
}

func (s *Server) handleTest(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": "Hello from the backend!"})
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w, http.MethodPost)
		return
	}

	var payload struct {
		Username string `json:"username"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}

	_, err := s.authService.Register(r.Context(), payload.Username, payload.Email, payload.Password)
	if err != nil {
		switch {
		case errors.Is(err, authdomain.ErrEmailExists):
			writeError(w, http.StatusConflict, err.Error())
		case errors.Is(err, authdomain.ErrValidation):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			writeInternalError(w, r, err)
		}
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{"msg": "User registered successfully!"})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w, http.MethodPost)
		return
	}

	var payload struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}

	token, _, err := s.authService.Login(r.Context(), authdomain.Credentials{
		Email:    payload.Email,
		Password: payload.Password,
	})
	if err != nil {
		// One message for unknown email and wrong password alike.
		if errors.Is(err, authdomain.ErrInvalidCredentials) {
			writeError(w, http.StatusUnauthorized, "invalid email or password")
			return
		}
		writeInternalError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

func (s *Server) handleTasks(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUserFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	ctx := r.Context()
	switch r.Method {
	case http.MethodGet:
		tasks, err := s.taskService.List(ctx, user.ID)
		if err != nil {
			writeInternalError(w, r, err)
			return
		}
		if tasks == nil {
			tasks = []*taskdomain.Task{}
		}
		writeJSON(w, http.StatusOK, tasks)
	case http.MethodPost:
		var payload struct {
			Text string `json:"text"`
		}
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON payload")
			return
		}
		task, err := s.taskService.Create(ctx, user.ID, payload.Text)
		if err != nil {
			if errors.Is(err, taskdomain.ErrTextRequired) {
				writeError(w, http.StatusBadRequest, err.Error())
				return
			}
			writeInternalError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, task)
	default:
		writeMethodNotAllowed(w, http.MethodGet, http.MethodPost)
	}
}

func (s *Server) handleTaskByID(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUserFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	id := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/tasks/"), "/")
	if id == "" {
		writeError(w, http.StatusBadRequest, "task id required")
		return
	}

	ctx := r.Context()
	switch r.Method {
	case http.MethodPut:
		task, err := s.taskService.ToggleCompleted(ctx, user.ID, id)
		if err != nil {
			s.writeTaskError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, task)
	case http.MethodPatch:
		var payload struct {
			Text string `json:"text"`
		}
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON payload")
			return
		}
		task, err := s.taskService.UpdateText(ctx, user.ID, id, payload.Text)
		if err != nil {
			s.writeTaskError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, task)
	case http.MethodDelete:
		if err := s.taskService.Delete(ctx, user.ID, id); err != nil {
			s.writeTaskError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"msg": "Task removed"})
	default:
		writeMethodNotAllowed(w, http.MethodPut, http.MethodPatch, http.MethodDelete)
	}
}

// writeTaskError maps task service failures to HTTP statuses. "Not found" and
// "not yours" stay separate branches.
func (s *Server) writeTaskError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, taskdomain.ErrTextRequired):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, taskdomain.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, taskdomain.ErrForbidden):
		writeError(w, http.StatusForbidden, err.Error())
	default:
		writeInternalError(w, r, err)
	}
}

func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := extractBearerToken(r.Header.Get("Authorization"))
		if token == "" {
			writeError(w, http.StatusUnauthorized, "authorization token required")
			return
		}

		user, err := s.authService.VerifyToken(r.Context(), token)
		if err != nil {
			if errors.Is(err, authdomain.ErrTokenInvalid) {
				// Malformed, bad signature, and expired all read the same here.
				writeError(w, http.StatusUnauthorized, "invalid or expired token")
				return
			}
			// Storage failure during the user lookup, not a token defect.
			writeInternalError(w, r, err)
			return
		}

		ctx := context.WithValue(r.Context(), ctxKeyUser{}, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func currentUserFromContext(ctx context.Context) (*authdomain.User, bool) {
	user, ok := ctx.Value(ctxKeyUser{}).(*authdomain.User)
	if !ok || user == nil {
		return nil, false
	}
	return user, true
}

type ctxKeyUser struct{}

func extractBearerToken(header string) string {
	if header == "" {
		return ""
	}
	if !strings.HasPrefix(strings.ToLower(header), "bearer ") {
		return ""
	}
	return strings.TrimSpace(header[7:])
}
