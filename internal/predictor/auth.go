package predictor

import (
	"context"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"
)

const (
	iamRequestTimeout = 10 * time.Second

	// DefaultTokenLifetime is how long an acquired IAM token is reused
	// before a fresh one is requested.
	DefaultTokenLifetime = time.Hour
)

// Auth supplies authentication headers for prediction requests.
type Auth interface {
	Headers(ctx context.Context) (map[string]string, error)
}

// APIKeyAuth authenticates with a static bearer token.
type APIKeyAuth struct {
	Key string
}

// Headers returns the Authorization header.
func (a *APIKeyAuth) Headers(context.Context) (map[string]string, error) {
	return map[string]string{"Authorization": "Bearer " + a.Key}, nil
}

// IAMOptions configures an IAM password-grant token exchange.
type IAMOptions struct {
	URL      string
	Username string
	Password string
	Domain   string
	Project  string
	// Lifetime bounds how long a token is cached; zero means
	// DefaultTokenLifetime.
	Lifetime time.Duration
}

// IAMTokenAuth authenticates with an X-Auth-Token acquired from an IAM
// service. Tokens are cached in memory and refreshed after their lifetime
// elapses. Safe for concurrent use.
type IAMTokenAuth struct {
	opts   IAMOptions
	client *resty.Client

	mu     sync.Mutex
	token  string
	expiry time.Time
}

// NewIAMTokenAuth returns an IAM auth handler. No token is acquired until
// the first Headers call.
func NewIAMTokenAuth(opts IAMOptions) *IAMTokenAuth {
	if opts.Lifetime <= 0 {
		opts.Lifetime = DefaultTokenLifetime
	}
	return &IAMTokenAuth{
		opts:   opts,
		client: resty.New().SetTimeout(iamRequestTimeout),
	}
}

// Headers returns the X-Auth-Token header, exchanging credentials for a new
// token if the cached one has expired.
func (a *IAMTokenAuth) Headers(ctx context.Context) (map[string]string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.token == "" || time.Now().After(a.expiry) {
		if err := a.acquire(ctx); err != nil {
			return nil, err
		}
	}
	return map[string]string{"X-Auth-Token": a.token}, nil
}

// ClearCache drops the cached token, forcing a refresh on the next request.
func (a *IAMTokenAuth) ClearCache() {
	a.mu.Lock()
	a.token = ""
	a.expiry = time.Time{}
	a.mu.Unlock()
}

type iamRequest struct {
	Auth struct {
		Identity struct {
			Methods  []string `json:"methods"`
			Password struct {
				User struct {
					Name     string `json:"name"`
					Password string `json:"password"`
					Domain   struct {
						Name string `json:"name"`
					} `json:"domain"`
				} `json:"user"`
			} `json:"password"`
		} `json:"identity"`
		Scope struct {
			Project struct {
				Name string `json:"name"`
			} `json:"project"`
		} `json:"scope"`
	} `json:"auth"`
}

// acquire exchanges credentials for a token. The token arrives in the
// X-Subject-Token response header, not the body. Callers hold a.mu.
func (a *IAMTokenAuth) acquire(ctx context.Context) error {
	var payload iamRequest
	payload.Auth.Identity.Methods = []string{"password"}
	payload.Auth.Identity.Password.User.Name = a.opts.Username
	payload.Auth.Identity.Password.User.Password = a.opts.Password
	payload.Auth.Identity.Password.User.Domain.Name = a.opts.Domain
	payload.Auth.Scope.Project.Name = a.opts.Project

	resp, err := a.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(payload).
		Post(a.opts.URL)
	if err != nil {
		return errors.Wrap(err, "IAM token request failed")
	}
	if resp.IsError() {
		return errors.Errorf("IAM token request failed: %s", resp.Status())
	}

	token := resp.Header().Get("X-Subject-Token")
	if token == "" {
		return errors.New("X-Subject-Token not found in IAM response headers")
	}

	a.token = token
	a.expiry = time.Now().Add(a.opts.Lifetime)
	return nil
}
