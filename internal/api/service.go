// Package api is the typed surface over the GeoTask HTTP API: authentication,
// profile, and the domain resources (tasks, orders, contractors, locations).
package api

import (
	"context"
	"log/slog"

	"github.com/go-playground/validator/v10"

	"github.com/DonShan/GeoTask/internal/apierror"
	"github.com/DonShan/GeoTask/internal/httpclient"
	"github.com/DonShan/GeoTask/internal/session"
)

// Service talks to the GeoTask API through the HTTP client's interceptor
// pipeline. It implements session.AuthAPI.
type Service struct {
	client   *httpclient.Client
	validate *validator.Validate
	log      *slog.Logger

	Tasks       Resource[Task]
	Orders      Resource[Order]
	Contractors Resource[Contractor]
	Locations   Resource[Location]
}

// NewService creates the API service over an existing client.
func NewService(client *httpclient.Client, log *slog.Logger) *Service {
	s := &Service{
		client:   client,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		log:      log,
	}
	s.Tasks = Resource[Task]{client: client, base: "/tasks"}
	s.Orders = Resource[Order]{client: client, base: "/orders"}
	s.Contractors = Resource[Contractor]{client: client, base: "/contractors"}
	s.Locations = Resource[Location]{client: client, base: "/locations"}
	return s
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

type registerRequest struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	Phone    string `json:"phone,omitempty"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

type authResponse struct {
	User  session.User  `json:"user"`
	Token session.Token `json:"token"`
}

// Login exchanges credentials for a user and token pair. Validation failures
// surface as InvalidRequest without a network call.
func (s *Service) Login(ctx context.Context, creds session.Credentials) (session.User, session.Token, error) {
	req := loginRequest{Email: creds.Email, Password: creds.Password}
	if err := s.validate.Struct(req); err != nil {
		return session.User{}, session.Token{}, apierror.InvalidRequest(err.Error())
	}

	resp, err := httpclient.Post[authResponse](ctx, s.client, "/auth/login", req)
	if err != nil {
		return session.User{}, session.Token{}, err
	}
	return resp.User, normalizeToken(resp.Token), nil
}

// Register creates an account and returns the opened session's user and token.
func (s *Service) Register(ctx context.Context, reg session.Registration) (session.User, session.Token, error) {
	req := registerRequest{Name: reg.Name, Email: reg.Email, Password: reg.Password, Phone: reg.Phone}
	if err := s.validate.Struct(req); err != nil {
		return session.User{}, session.Token{}, apierror.InvalidRequest(err.Error())
	}

	resp, err := httpclient.Post[authResponse](ctx, s.client, "/auth/register", req)
	if err != nil {
		return session.User{}, session.Token{}, err
	}
	return resp.User, normalizeToken(resp.Token), nil
}

// Logout invalidates the session server-side.
func (s *Service) Logout(ctx context.Context) error {
	_, err := httpclient.Post[struct{}](ctx, s.client, "/auth/logout", nil)
	return err
}

// Refresh rotates the token pair using the refresh token.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (session.Token, error) {
	req := refreshRequest{RefreshToken: refreshToken}
	if err := s.validate.Struct(req); err != nil {
		return session.Token{}, apierror.InvalidRequest(err.Error())
	}

	resp, err := httpclient.Post[authResponse](ctx, s.client, "/auth/refresh", req)
	if err != nil {
		return session.Token{}, err
	}
	return normalizeToken(resp.Token), nil
}

// Profile fetches the authenticated user's profile.
func (s *Service) Profile(ctx context.Context) (session.User, error) {
	return httpclient.Get[session.User](ctx, s.client, "/profile", nil)
}

// UpdateProfile applies a partial profile update and returns the new profile.
func (s *Service) UpdateProfile(ctx context.Context, update ProfileUpdate) (session.User, error) {
	if err := s.validate.Struct(update); err != nil {
		return session.User{}, apierror.InvalidRequest(err.Error())
	}
	return httpclient.Put[session.User](ctx, s.client, "/profile", update)
}

// normalizeToken fills in fields servers are allowed to omit: the token type
// defaults to Bearer and a missing expiry is derived from the JWT exp claim.
func normalizeToken(t session.Token) session.Token {
	if t.TokenType == "" {
		t.TokenType = "Bearer"
	}
	if t.ExpiresAt.IsZero() {
		if exp, err := session.ExpiryFromJWT(t.AccessToken); err == nil {
			t.ExpiresAt.Time = exp
		}
	}
	return t
}
