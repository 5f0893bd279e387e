package auth

import (
	"context"
	"net/mail"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/robertarktes/studio-bookings/internal/domain"
)

type UserStore interface {
	// InsertUser returns an error marked domain.ErrConflict when the email is taken.
	InsertUser(ctx context.Context, u *domain.User) error
	GetUser(ctx context.Context, id string) (*domain.User, error)
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)
	ListUsers(ctx context.Context, role domain.Role) ([]domain.User, error)
	SetBlacklisted(ctx context.Context, id string, blacklisted bool) error
}

type RegisterInput struct {
	Email    string
	Password string
	Name     string
	Phone    string
	Address  string
}

type Session struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expiresAt"`
	User      *domain.User `json:"user"`
}

type Service struct {
	users      UserStore
	issuer     *Issuer
	bcryptCost int
	now        func() time.Time
}

func NewService(users UserStore, issuer *Issuer, bcryptCost int) *Service {
	return &Service{users: users, issuer: issuer, bcryptCost: bcryptCost, now: func() time.Time { return time.Now().UTC() }}
}

func (s *Service) Issuer() *Issuer {
	return s.issuer
}

// Register creates a customer account. Admin accounts are provisioned out of band.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*Session, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, domain.InvalidInputf("invalid email address")
	}
	if len(in.Password) < 8 {
		return nil, domain.InvalidInputf("password must be at least 8 characters")
	}
	if strings.TrimSpace(in.Name) == "" {
		return nil, domain.InvalidInputf("name is required")
	}

	hash, err := HashPassword(in.Password, s.bcryptCost)
	if err != nil {
		return nil, err
	}
	now := s.now()
	u := &domain.User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: hash,
		Name:         strings.TrimSpace(in.Name),
		Phone:        in.Phone,
		Address:      in.Address,
		Role:         domain.RoleCustomer,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.users.InsertUser(ctx, u); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			return nil, domain.Conflictf("email %s is already registered", email)
		}
		return nil, errors.Wrap(err, "insert user")
	}
	return s.session(u)
}

func (s *Service) Login(ctx context.Context, email, password string) (*Session, error) {
	u, err := s.users.GetUserByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, errors.Wrap(err, "load user")
	}
	if u == nil || !VerifyPassword(u.PasswordHash, password) {
		return nil, errors.Mark(errors.New("invalid email or password"), domain.ErrUnauthorized)
	}
	if u.IsBlacklisted {
		return nil, domain.Forbiddenf("account is blacklisted")
	}
	return s.session(u)
}

func (s *Service) Me(ctx context.Context, actor domain.Actor) (*domain.User, error) {
	u, err := s.users.GetUser(ctx, actor.ID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, errors.Mark(errors.New("account no longer exists"), domain.ErrUnauthorized)
	}
	return u, errors.Wrap(err, "load user")
}

func (s *Service) ListUsers(ctx context.Context, role domain.Role) ([]domain.User, error) {
	users, err := s.users.ListUsers(ctx, role)
	return users, errors.Wrap(err, "list users")
}

func (s *Service) SetBlacklisted(ctx context.Context, id string, blacklisted bool) (*domain.User, error) {
	if err := s.users.SetBlacklisted(ctx, id, blacklisted); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.NotFoundf("user %s not found", id)
		}
		return nil, errors.Wrap(err, "update user")
	}
	u, err := s.users.GetUser(ctx, id)
	return u, errors.Wrap(err, "load user")
}

func (s *Service) session(u *domain.User) (*Session, error) {
	token, exp, err := s.issuer.Issue(u.ID, u.Role)
	if err != nil {
		return nil, err
	}
	return &Session{Token: token, ExpiresAt: exp, User: u}, nil
}
