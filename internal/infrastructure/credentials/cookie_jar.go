package credentials

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"os"
	"path/filepath"
	"sync"
	"time"
)

const cookieFileName = ".cookies"

// savedCookie keeps the attributes http.CookieJar.Cookies does not return
type savedCookie struct {
	Name     string    `json:"name"`
	Value    string    `json:"value"`
	Path     string    `json:"path,omitempty"`
	Expires  time.Time `json:"expires,omitempty"`
	HttpOnly bool      `json:"http_only,omitempty"`
}

// FileCookieJar is a cookie jar for a single API origin whose cookies survive
// between process runs. It holds the refresh session cookie, so the file is
// encrypted like the session file.
type FileCookieJar struct {
	jar    *cookiejar.Jar
	origin *url.URL
	path   string
	sealer sealer
	logger *slog.Logger

	mu      sync.Mutex
	cookies map[string]savedCookie
}

// NewFileCookieJar creates a jar for baseURL persisted in dir/.cookies
func NewFileCookieJar(dir, secret, baseURL string, logger *slog.Logger) (*FileCookieJar, error) {
	origin, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid API base URL: %w", err)
	}
	dir, err = sessionDir(dir)
	if err != nil {
		return nil, err
	}
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}

	j := &FileCookieJar{
		jar:     jar,
		origin:  origin,
		path:    filepath.Join(dir, cookieFileName),
		sealer:  newSealer(secret),
		logger:  logger,
		cookies: map[string]savedCookie{},
	}
	if err := j.load(); err != nil {
		logger.Warn("discarding unreadable cookie file", slog.String("error", err.Error()))
	}
	return j, nil
}

// Cookies implements http.CookieJar
func (j *FileCookieJar) Cookies(u *url.URL) []*http.Cookie {
	j.mu.Lock()
	jar := j.jar
	j.mu.Unlock()
	return jar.Cookies(u)
}

// SetCookies implements http.CookieJar and persists cookies set by the API origin
func (j *FileCookieJar) SetCookies(u *url.URL, cookies []*http.Cookie) {
	j.mu.Lock()
	defer j.mu.Unlock()

	j.jar.SetCookies(u, cookies)
	if u.Host != j.origin.Host {
		return
	}

	now := time.Now()
	for _, c := range cookies {
		expires := c.Expires
		if c.MaxAge > 0 {
			expires = now.Add(time.Duration(c.MaxAge) * time.Second)
		}
		if c.MaxAge < 0 || (!expires.IsZero() && !expires.After(now)) {
			delete(j.cookies, c.Name)
			continue
		}
		j.cookies[c.Name] = savedCookie{
			Name:     c.Name,
			Value:    c.Value,
			Path:     c.Path,
			Expires:  expires,
			HttpOnly: c.HttpOnly,
		}
	}

	if err := j.save(); err != nil {
		j.logger.Warn("failed to persist cookies", slog.String("error", err.Error()))
	}
}

// Clear drops every cookie, in memory and on disk
func (j *FileCookieJar) Clear() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	jar, err := cookiejar.New(nil)
	if err != nil {
		return err
	}
	j.jar = jar
	j.cookies = map[string]savedCookie{}

	if err := os.Remove(j.path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func (j *FileCookieJar) load() error {
	data, err := os.ReadFile(j.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	plain, err := j.sealer.open(data)
	if err != nil {
		return fmt.Errorf("failed to decrypt cookie file: %w", err)
	}

	var saved []savedCookie
	if err := json.Unmarshal(plain, &saved); err != nil {
		return fmt.Errorf("failed to unmarshal cookie file: %w", err)
	}

	now := time.Now()
	restored := make([]*http.Cookie, 0, len(saved))
	for _, c := range saved {
		if !c.Expires.IsZero() && !c.Expires.After(now) {
			continue
		}
		j.cookies[c.Name] = c
		restored = append(restored, &http.Cookie{
			Name:     c.Name,
			Value:    c.Value,
			Path:     c.Path,
			Expires:  c.Expires,
			HttpOnly: c.HttpOnly,
		})
	}
	j.jar.SetCookies(j.origin, restored)
	return nil
}

// save must be called with j.mu held
func (j *FileCookieJar) save() error {
	if len(j.cookies) == 0 {
		if err := os.Remove(j.path); err != nil && !os.IsNotExist(err) {
			return err
		}
		return nil
	}

	saved := make([]savedCookie, 0, len(j.cookies))
	for _, c := range j.cookies {
		saved = append(saved, c)
	}

	data, err := json.Marshal(saved)
	if err != nil {
		return err
	}
	sealed, err := j.sealer.seal(data)
	if err != nil {
		return err
	}
	return writeFileAtomic(j.path, sealed)
}

var _ http.CookieJar = (*FileCookieJar)(nil)
