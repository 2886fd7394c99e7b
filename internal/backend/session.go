package backend

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
)

// ErrMissingCredentials is returned before calling the backend with an empty
// username or password.
var ErrMissingCredentials = errors.New("username and password are required")

// Admin is the authenticated console operator.
type Admin struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// UnmarshalJSON accepts both "id" and Mongo's "_id".
func (a *Admin) UnmarshalJSON(data []byte) error {
	var raw struct {
		ID       string `json:"id"`
		MongoID  string `json:"_id"`
		Username string `json:"username"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	a.ID = raw.ID
	if a.ID == "" {
		a.ID = raw.MongoID
	}
	a.Username = raw.Username
	return nil
}

// Session holds the bearer token of a signed-in admin. Protected backend
// calls are methods of Session so the token is always passed explicitly.
type Session struct {
	client *Client
	token  string
	admin  Admin
}

// NewSession binds an existing token to the client without verifying it.
func (c *Client) NewSession(token string, admin Admin) *Session {
	return &Session{client: c, token: token, admin: admin}
}

func (s *Session) Token() string {
	return s.token
}

func (s *Session) Admin() Admin {
	return s.admin
}

// Credentials are the sign-in and sign-up form values.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (c Credentials) validate() error {
	if strings.TrimSpace(c.Username) == "" || c.Password == "" {
		return ErrMissingCredentials
	}
	return nil
}

type loginResponse struct {
	Token string `json:"token"`
	Admin Admin  `json:"admin"`
}

type verifyResponse struct {
	Admin Admin `json:"admin"`
}

// Login exchanges credentials for a session.
func (c *Client) Login(ctx context.Context, creds Credentials) (*Session, error) {
	if err := creds.validate(); err != nil {
		return nil, err
	}

	req, err := jsonRequest(http.MethodPost, "/auth/login", creds)
	if err != nil {
		return nil, err
	}

	var resp loginResponse
	if err := c.do(ctx, req, &resp); err != nil {
		return nil, err
	}
	if resp.Token == "" {
		return nil, ErrUnauthorized
	}

	return c.NewSession(resp.Token, resp.Admin), nil
}

// Register creates a new admin account. The admin signs in afterwards.
func (c *Client) Register(ctx context.Context, creds Credentials) error {
	if err := creds.validate(); err != nil {
		return err
	}

	req, err := jsonRequest(http.MethodPost, "/auth/register", creds)
	if err != nil {
		return err
	}

	return c.do(ctx, req, nil)
}

// Verify returns the admin owning token.
func (c *Client) Verify(ctx context.Context, token string) (Admin, error) {
	if token == "" {
		return Admin{}, ErrUnauthorized
	}

	var resp verifyResponse
	if err := c.do(ctx, request{method: http.MethodGet, path: "/auth/verify", token: token}, &resp); err != nil {
		return Admin{}, err
	}

	return resp.Admin, nil
}

// Resume verifies a stored token and returns a session for it.
func (c *Client) Resume(ctx context.Context, token string) (*Session, error) {
	admin, err := c.Verify(ctx, token)
	if err != nil {
		return nil, err
	}
	return c.NewSession(token, admin), nil
}

func (s *Session) do(ctx context.Context, req request, dest any) error {
	req.token = s.token
	return s.client.do(ctx, req, dest)
}
