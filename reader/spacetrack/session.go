package spacetrack

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"satcatflow/config"
	"satcatflow/logger"
	"satcatflow/models"
)

const (
	LoginPath       = "/ajaxauth/login"
	SatcatQueryPath = "/basicspacedata/query/class/satcat/COUNTRY/<>de/format/json/orderby/COUNTRY asc"
)

// AuthError reports a login that did not return HTTP 200.
type AuthError struct {
	Status int
	Body   string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("spacetrack login failed: status=%d body=%s", e.Status, e.Body)
}

// FetchError reports a catalog query that failed or returned an unusable body.
type FetchError struct {
	Status int
	Err    error
}

func (e *FetchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("spacetrack catalog fetch failed: status=%d: %v", e.Status, e.Err)
	}
	return fmt.Sprintf("spacetrack catalog fetch failed: status=%d", e.Status)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Session is an authenticated conversation with the catalog service. The
// login cookie is kept in the session's jar and sent with later queries.
type Session struct {
	base     *url.URL
	client   *http.Client
	limiter  *rate.Limiter
	identity string
	password string
	log      *logger.Log

	mu     sync.Mutex
	closed bool
}

// Open prepares a session for cfg. No request is made until Login.
func Open(cfg config.SpaceTrackConfig) (*Session, error) {
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}

	limit := rate.Inf
	if cfg.RequestsPerMinute > 0 {
		limit = rate.Every(time.Minute / time.Duration(cfg.RequestsPerMinute))
	}

	s := &Session{
		base: base,
		client: &http.Client{
			Timeout:   cfg.Timeout,
			Jar:       jar,
			Transport: &http.Transport{Proxy: http.ProxyFromEnvironment},
		},
		limiter:  rate.NewLimiter(limit, 1),
		identity: cfg.Identity,
		password: cfg.Password,
		log:      logger.GetLogger(),
	}

	s.log.WithComponent("spacetrack_session").WithFields(logger.Fields{
		"base_url":            base.String(),
		"timeout":             cfg.Timeout,
		"requests_per_minute": cfg.RequestsPerMinute,
	}).Debug("session opened")

	return s, nil
}

// WithSession opens a session, runs fn and closes the session on every
// return path.
func WithSession(ctx context.Context, cfg config.SpaceTrackConfig, fn func(context.Context, *Session) error) (err error) {
	s, err := Open(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := s.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	return fn(ctx, s)
}

// Login posts the credentials. HTTP 200 only shows the server accepted the
// form; the service answers 200 for bad credentials too, which surfaces
// later as a FetchError (usually 401).
func (s *Session) Login(ctx context.Context) error {
	log := s.log.WithComponent("spacetrack_session").WithFields(logger.Fields{"operation": "login"})

	form := url.Values{}
	form.Set("identity", s.identity)
	form.Set("password", s.password)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint(LoginPath), strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("build login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.do(ctx, req)
	if err != nil {
		return fmt.Errorf("spacetrack login request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		authErr := &AuthError{Status: resp.StatusCode, Body: strings.TrimSpace(string(body))}
		log.WithFields(logger.Fields{"status": resp.StatusCode}).Error("login rejected")
		return authErr
	}

	log.Info("login accepted")
	return nil
}

// FetchCatalog queries the satellite catalog and decodes the JSON array.
// Numbers are kept as json.Number so no precision is lost before
// normalization.
func (s *Session) FetchCatalog(ctx context.Context) ([]models.RawRecord, error) {
	log := s.log.WithComponent("spacetrack_session").WithFields(logger.Fields{"operation": "fetch_catalog"})

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.endpoint(SatcatQueryPath), nil)
	if err != nil {
		return nil, fmt.Errorf("build catalog request: %w", err)
	}

	start := time.Now()
	resp, err := s.do(ctx, req)
	if err != nil {
		return nil, &FetchError{Err: err}
	}
	defer resp.Body.Close()
	logger.LogPerformanceEntry(log, "spacetrack_session", "catalog_request", time.Since(start), logger.Fields{
		"status": resp.StatusCode,
	})

	if resp.StatusCode != http.StatusOK {
		log.WithFields(logger.Fields{"status": resp.StatusCode}).Error("catalog query rejected")
		return nil, &FetchError{Status: resp.StatusCode}
	}

	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()
	var records []models.RawRecord
	if err := dec.Decode(&records); err != nil {
		return nil, &FetchError{Status: resp.StatusCode, Err: fmt.Errorf("decode catalog: %w", err)}
	}

	logger.LogDataFlowEntry(log, "spacetrack_api", "pipeline", len(records), "satcat_records")
	return records, nil
}

// Close releases pooled connections. It is safe to call more than once.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	s.client.CloseIdleConnections()
	s.log.WithComponent("spacetrack_session").Debug("session closed")
	return nil
}

// Closed reports whether Close has been called.
func (s *Session) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *Session) do(ctx context.Context, req *http.Request) (*http.Response, error) {
	if s.Closed() {
		return nil, fmt.Errorf("session is closed")
	}
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}
	req.Header.Set("User-Agent", "satcatflow/1.0")
	return s.client.Do(req)
}

func (s *Session) endpoint(path string) string {
	u := *s.base
	u.Path = s.base.Path + path
	u.RawPath = ""
	return u.String()
}
