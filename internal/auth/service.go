package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"golang.org/x/crypto/bcrypt"

	"github.com/getlife/backend/internal/models"
)

// MinPasswordLength matches the sign-up form.
const MinPasswordLength = 6

var (
	// ErrDuplicateEmail is returned when registering with an email that already exists.
	ErrDuplicateEmail     = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrNotVerified        = errors.New("account not verified")
	ErrWeakPassword       = fmt.Errorf("password must be at least %d characters", MinPasswordLength)
)

type RegisterInput struct {
	Email    string
	Password string
	Name     string
	Phone    string
	Address  string
}

type Store interface {
	Create(ctx context.Context, a *models.Account) error
	UpsertAdmin(ctx context.Context, a *models.Account) error
	GetByEmail(ctx context.Context, email string) (*models.Account, error)
}

type Service interface {
	Register(ctx context.Context, in RegisterInput) (*models.Account, error)
	Login(ctx context.Context, email, password string) (string, *models.Account, error)
	ValidateToken(ctx context.Context, token string) (uuid.UUID, string, error)
	EnsureAdmin(ctx context.Context, email, password, name string) (*models.Account, error)
}

type service struct {
	repo   Store
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewService(repo Store, secret string) *service {
	return &service{repo: repo, secret: []byte(secret), ttl: 24 * time.Hour, now: time.Now}
}

// Ensure service implements Service at compile time.
var _ Service = (*service)(nil)

type claims struct {
	jwt.RegisteredClaims
	Role string `json:"role"`
}

// HashPassword bcrypt-hashes a password after checking its length.
func HashPassword(password string) (string, error) {
	if len(password) < MinPasswordLength {
		return "", ErrWeakPassword
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// Register creates a customer account. Mitras join through an approved application.
func (s *service) Register(ctx context.Context, in RegisterInput) (*models.Account, error) {
	hash, err := HashPassword(in.Password)
	if err != nil {
		return nil, err
	}
	acc := &models.Account{
		Email:        in.Email,
		Name:         in.Name,
		Phone:        in.Phone,
		Address:      in.Address,
		PasswordHash: hash,
		Role:         models.RoleUser,
		Status:       models.AccountStatusActive,
	}
	if err := s.repo.Create(ctx, acc); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, ErrDuplicateEmail
		}
		return nil, err
	}
	return acc, nil
}

// Login checks the password and issues a token. Mitras must be verified;
// blocked mitras still log in and are held back per request.
func (s *service) Login(ctx context.Context, email, password string) (string, *models.Account, error) {
	acc, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		return "", nil, err
	}
	if acc == nil {
		return "", nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(acc.PasswordHash), []byte(password)); err != nil {
		return "", nil, ErrInvalidCredentials
	}
	if acc.Role == models.RoleMitra && acc.Status != models.AccountStatusVerified {
		return "", nil, ErrNotVerified
	}
	tok, err := s.issueToken(acc.ID, acc.Role)
	if err != nil {
		return "", nil, err
	}
	return tok, acc, nil
}

func (s *service) EnsureAdmin(ctx context.Context, email, password, name string) (*models.Account, error) {
	hash, err := HashPassword(password)
	if err != nil {
		return nil, err
	}
	acc := &models.Account{Email: email, Name: name, PasswordHash: hash}
	if err := s.repo.UpsertAdmin(ctx, acc); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s is not an admin account", ErrDuplicateEmail, email)
		}
		return nil, err
	}
	return acc, nil
}

func (s *service) issueToken(userID uuid.UUID, role string) (string, error) {
	now := s.now()
	c := claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
		Role: role,
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	return tok.SignedString(s.secret)
}

func (s *service) ValidateToken(ctx context.Context, token string) (uuid.UUID, string, error) {
	tok, err := jwt.ParseWithClaims(token, &claims{}, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return uuid.Nil, "", err
	}
	c, ok := tok.Claims.(*claims)
	if !ok || !tok.Valid {
		return uuid.Nil, "", errors.New("invalid token")
	}
	id, err := uuid.Parse(c.Subject)
	if err != nil {
		return uuid.Nil, "", err
	}
	return id, c.Role, nil
}
