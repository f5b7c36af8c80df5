package api

import (
	"context"
	"log/slog"

	"github.com/Shobayosamuel/cloudbox-go/internal/session"
)

// User is the profile of the authenticated account.
type User struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	LastLogin string `json:"lastLogin"`
}

// loginRequest and friends mirror the server's auth endpoint shapes.
type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Tokens struct {
		Token        string `json:"token"`
		RefreshToken string `json:"refreshToken"`
	} `json:"tokens"`
	User User `json:"user"`
}

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login exchanges credentials for a token pair, stores the pair, and
// returns the user profile from the login response.
func (c *Client) Login(ctx context.Context, username, password string) (*User, error) {
	var lr loginResponse
	if err := c.PostJSON(ctx, "/auth/login", loginRequest{Username: username, Password: password}, &lr); err != nil {
		return nil, err
	}

	c.exec.store.Set(session.Pair{
		Access:  lr.Tokens.Token,
		Refresh: lr.Tokens.RefreshToken,
	})

	c.logger.Info("login succeeded", slog.String("username", lr.User.Username))

	return &lr.User, nil
}

// Register creates a new account. The caller is expected to follow up with
// Login — the server does not issue tokens on registration.
func (c *Client) Register(ctx context.Context, username, email, password string) error {
	return c.PostJSON(ctx, "/auth/register", registerRequest{
		Username: username,
		Email:    email,
		Password: password,
	}, nil)
}

// Profile fetches the authenticated user's profile. Used on session
// hydration: a stored token pair is only trusted once the server has
// answered this call.
func (c *Client) Profile(ctx context.Context) (*User, error) {
	var u User
	if err := c.GetJSON(ctx, "/auth/profile", &u); err != nil {
		return nil, err
	}

	return &u, nil
}
