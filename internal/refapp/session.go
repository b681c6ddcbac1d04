package refapp

import (
	"context"
	"net/http"
	"sync"

	"github.com/google/uuid"
)

// SessionCookie names the login cookie.
const SessionCookie = "pagecheck_session"

type sessions struct {
	mu     sync.Mutex
	tokens map[string]string // token -> email
}

func newSessions() *sessions {
	return &sessions{tokens: make(map[string]string)}
}

func (ss *sessions) create(email string) string {
	token := uuid.Must(uuid.NewV7()).String()
	ss.mu.Lock()
	defer ss.mu.Unlock()
	ss.tokens[token] = email
	return token
}

func (ss *sessions) lookup(token string) (string, bool) {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	email, ok := ss.tokens[token]
	return email, ok
}

func (ss *sessions) delete(token string) {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	delete(ss.tokens, token)
}

// Active reports how many sessions are live.
func (s *Server) Active() int {
	s.sessions.mu.Lock()
	defer s.sessions.mu.Unlock()
	return len(s.sessions.tokens)
}

type emailKey struct{}

// sessionEmail returns the logged-in email for r, if any.
func (s *Server) sessionEmail(r *http.Request) (string, bool) {
	c, err := r.Cookie(SessionCookie)
	if err != nil {
		return "", false
	}
	return s.sessions.lookup(c.Value)
}

func (s *Server) requireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		email, ok := s.sessionEmail(r)
		if !ok && !s.faults.AllowAnonymous {
			if r.URL.Path == PathSeaAPI {
				writeJSON(w, http.StatusUnauthorized, map[string]string{"error": deniedMessage})
				return
			}
			http.Redirect(w, r, PathLogin+"?denied=1", http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), emailKey{}, email)))
	})
}

func setSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
}
