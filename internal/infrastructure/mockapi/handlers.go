package mockapi

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"slices"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"hokz.academy/cli/internal/core/domain"
)

type ctxKey int

const (
	roleKey ctxKey = iota
	sessionKey
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type apiResponse struct {
	Success     bool   `json:"success"`
	Message     string `json:"message,omitempty"`
	AccessToken string `json:"accessToken,omitempty"`
	User        any    `json:"user,omitempty"`
	Data        any    `json:"data,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body apiResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, apiResponse{Success: false, Message: message})
}

// roleParam validates the {role} segment
func (s *Server) roleParam(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		role, err := domain.ParseRole(chi.URLParam(r, "role"))
		if err != nil {
			writeError(w, http.StatusNotFound, "unknown role")
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), roleKey, role)))
	})
}

// requireRole rejects requests whose bearer token is missing, expired or bound to
// a session the role is not signed in on
func (s *Server) requireRole(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		role := r.Context().Value(roleKey).(domain.Role)

		sessionID, err := s.verifyAccessToken(r.Header.Get("Authorization"))
		if err != nil {
			s.logger.Debug("rejected access token", slog.String("error", err.Error()))
			writeError(w, http.StatusUnauthorized, "access token expired or invalid")
			return
		}

		s.mu.Lock()
		session, ok := s.sessions[sessionID]
		var signedIn bool
		if ok {
			_, signedIn = session.roles[role]
		}
		s.mu.Unlock()

		if !ok {
			writeError(w, http.StatusUnauthorized, "session expired")
			return
		}
		if !signedIn {
			writeError(w, http.StatusForbidden, "not signed in as "+role.String())
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), sessionKey, sessionID)))
	})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	role := r.Context().Value(roleKey).(domain.Role)

	var body loginRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	account, ok := s.findAccount(role, body.Email, body.Password)
	if !ok {
		writeError(w, http.StatusUnauthorized, "invalid email or password")
		return
	}

	// Several roles share one browser session
	s.mu.Lock()
	sessionID, session := s.sessionFromCookie(r)
	if session == nil {
		sessionID = uuid.NewString()
		session = &refreshSession{roles: map[domain.Role]string{}}
		s.sessions[sessionID] = session
	}
	session.roles[role] = account.Email
	session.expiresAt = s.now().Add(s.config.RefreshTTL)
	token, err := s.issueAccessToken(sessionID, session)
	s.mu.Unlock()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to issue token")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     RefreshCookieName,
		Value:    sessionID,
		Path:     "/api",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(s.config.RefreshTTL.Seconds()),
	})

	s.logger.Info("login", slog.String("role", role.String()), slog.String("email", account.Email))
	writeJSON(w, http.StatusOK, apiResponse{Success: true, AccessToken: token, User: account})
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	s.refreshCalls.Add(1)

	if s.failRefresh.Load() {
		writeError(w, http.StatusUnauthorized, "refresh token expired")
		return
	}

	s.mu.Lock()
	sessionID, session := s.sessionFromCookie(r)
	var token string
	var err error
	if session != nil {
		token, err = s.issueAccessToken(sessionID, session)
	}
	s.mu.Unlock()

	switch {
	case session == nil:
		writeError(w, http.StatusUnauthorized, "refresh token expired")
	case err != nil:
		writeError(w, http.StatusInternalServerError, "failed to issue token")
	default:
		writeJSON(w, http.StatusOK, apiResponse{Success: true, AccessToken: token})
	}
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	role := r.Context().Value(roleKey).(domain.Role)

	s.mu.Lock()
	sessionID, session := s.sessionFromCookie(r)
	remaining := 0
	if session != nil {
		delete(session.roles, role)
		remaining = len(session.roles)
		if remaining == 0 {
			delete(s.sessions, sessionID)
		}
	}
	s.mu.Unlock()

	if session != nil && remaining == 0 {
		http.SetCookie(w, &http.Cookie{Name: RefreshCookieName, Value: "", Path: "/api", MaxAge: -1})
	}
	writeJSON(w, http.StatusOK, apiResponse{Success: true, Message: "logged out"})
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	role := r.Context().Value(roleKey).(domain.Role)
	email := s.sessionEmail(r, role)

	for _, account := range s.config.Accounts {
		if account.Role == role && account.Email == email {
			writeJSON(w, http.StatusOK, apiResponse{Success: true, Data: account})
			return
		}
	}
	writeError(w, http.StatusNotFound, "profile not found")
}

func (s *Server) handleCourses(w http.ResponseWriter, r *http.Request) {
	query := strings.ToLower(r.URL.Query().Get("search"))

	courses := make([]Course, 0, len(s.config.Courses))
	for _, course := range s.config.Courses {
		if query == "" || strings.Contains(strings.ToLower(course.Title), query) {
			courses = append(courses, course)
		}
	}
	writeJSON(w, http.StatusOK, apiResponse{Success: true, Data: courses})
}

// handleRoleCourses lists what a tutor teaches, or every course for an admin
func (s *Server) handleRoleCourses(w http.ResponseWriter, r *http.Request) {
	role := r.Context().Value(roleKey).(domain.Role)
	email := s.sessionEmail(r, role)

	courses := make([]Course, 0, len(s.config.Courses))
	for _, course := range s.config.Courses {
		if role != domain.RoleTutor || course.Tutor == email {
			courses = append(courses, course)
		}
	}
	writeJSON(w, http.StatusOK, apiResponse{Success: true, Data: courses})
}

func (s *Server) handleCart(w http.ResponseWriter, r *http.Request) {
	if !s.learnerOnly(w, r) {
		return
	}
	email := s.sessionEmail(r, domain.RoleUser)

	s.mu.Lock()
	ids := slices.Clone(s.carts[email])
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, apiResponse{Success: true, Data: s.coursesByID(ids)})
}

func (s *Server) handleAddToCart(w http.ResponseWriter, r *http.Request) {
	if !s.learnerOnly(w, r) {
		return
	}

	var body struct {
		CourseID string `json:"courseId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.CourseID == "" {
		writeError(w, http.StatusBadRequest, "courseId is required")
		return
	}
	if len(s.coursesByID([]string{body.CourseID})) == 0 {
		writeError(w, http.StatusNotFound, "course not found")
		return
	}

	email := s.sessionEmail(r, domain.RoleUser)
	s.mu.Lock()
	if !slices.Contains(s.carts[email], body.CourseID) {
		s.carts[email] = append(s.carts[email], body.CourseID)
	}
	ids := slices.Clone(s.carts[email])
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, apiResponse{Success: true, Data: s.coursesByID(ids)})
}

func (s *Server) handleWishlist(w http.ResponseWriter, r *http.Request) {
	if !s.learnerOnly(w, r) {
		return
	}
	// Every learner wishes for the top rated course
	var best []Course
	for _, course := range s.config.Courses {
		if len(best) == 0 || course.Rating > best[0].Rating {
			best = []Course{course}
		}
	}
	writeJSON(w, http.StatusOK, apiResponse{Success: true, Data: best})
}

// Helpers

func (s *Server) learnerOnly(w http.ResponseWriter, r *http.Request) bool {
	if r.Context().Value(roleKey).(domain.Role) != domain.RoleUser {
		writeError(w, http.StatusNotFound, "not found")
		return false
	}
	return true
}

// sessionFromCookie must be called with s.mu held
func (s *Server) sessionFromCookie(r *http.Request) (string, *refreshSession) {
	cookie, err := r.Cookie(RefreshCookieName)
	if err != nil || cookie.Value == "" {
		return "", nil
	}
	session, ok := s.sessions[cookie.Value]
	if !ok {
		return "", nil
	}
	if !s.now().Before(session.expiresAt) {
		delete(s.sessions, cookie.Value)
		return "", nil
	}
	return cookie.Value, session
}

func (s *Server) sessionEmail(r *http.Request, role domain.Role) string {
	sessionID, _ := r.Context().Value(sessionKey).(string)

	s.mu.Lock()
	defer s.mu.Unlock()
	if session, ok := s.sessions[sessionID]; ok {
		return session.roles[role]
	}
	return ""
}

func (s *Server) findAccount(role domain.Role, email, password string) (Account, bool) {
	for _, account := range s.config.Accounts {
		if account.Role == role && strings.EqualFold(account.Email, email) && account.Password == password {
			return account, true
		}
	}
	return Account{}, false
}

func (s *Server) coursesByID(ids []string) []Course {
	out := make([]Course, 0, len(ids))
	for _, id := range ids {
		for _, course := range s.config.Courses {
			if course.ID == id {
				out = append(out, course)
			}
		}
	}
	return out
}
