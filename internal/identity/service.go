package identity

import (
	"context"
	"errors"
	"log/slog"
	"regexp"
	"unicode"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/linkforge/linkforge/internal/auth"
	"github.com/linkforge/linkforge/internal/errx"
)

const (
	DefaultBcryptCost = 12
	MinPasswordLength = 8
	MaxPasswordLength = 72 // bcrypt input limit
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// Credentials carries an email/password pair for register and login.
type Credentials struct {
	Email    string
	Password string
}

// AuthResult is the outcome of a successful register or login.
type AuthResult struct {
	Token string
	User  User
}

// Service defines the identity operations.
type Service interface {
	Register(ctx context.Context, creds Credentials) (AuthResult, error)
	Login(ctx context.Context, creds Credentials) (AuthResult, error)
	Me(ctx context.Context, userID uuid.UUID) (User, error)

	// ResolvePrincipal implements auth.PrincipalResolver: it verifies the
	// token and confirms the subject still resolves to a live user.
	ResolvePrincipal(ctx context.Context, token string) (auth.Principal, error)
}

type service struct {
	repo       Repository
	tokens     *auth.Manager
	logger     *slog.Logger
	bcryptCost int
}

// ServiceConfig holds configuration for the identity service.
type ServiceConfig struct {
	Tokens     *auth.Manager
	Logger     *slog.Logger
	BcryptCost int // hashing work factor (default: 12)
}

// NewService creates a new identity service instance.
func NewService(repo Repository, cfg ServiceConfig) Service {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	cost := cfg.BcryptCost
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = DefaultBcryptCost
	}

	return &service{
		repo:       repo,
		tokens:     cfg.Tokens,
		logger:     logger,
		bcryptCost: cost,
	}
}

func (s *service) Register(ctx context.Context, creds Credentials) (AuthResult, error) {
	const op = "identity.service.Register"

	if err := validateEmail(creds.Email); err != nil {
		return AuthResult{}, errx.E(op, errx.Invalid, err)
	}
	if err := validatePassword(creds.Password); err != nil {
		return AuthResult{}, errx.E(op, errx.Invalid, err)
	}

	taken, err := s.repo.EmailTaken(ctx, creds.Email)
	if err != nil {
		return AuthResult{}, errx.E(op, errx.KindOf(err), err)
	}
	if taken {
		return AuthResult{}, errx.Errorf(op, errx.Conflict, "user with this email already exists")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(creds.Password), s.bcryptCost)
	if err != nil {
		return AuthResult{}, errx.E(op, errx.Internal, err)
	}

	user, err := s.repo.Create(ctx, User{
		Email:        creds.Email,
		PasswordHash: string(hash),
	})
	if err != nil {
		// The check above races with concurrent registrations; the partial
		// unique index is the backstop and surfaces here as Conflict.
		if errx.KindOf(err) == errx.Conflict {
			return AuthResult{}, errx.Errorf(op, errx.Conflict, "user with this email already exists")
		}
		return AuthResult{}, errx.E(op, errx.KindOf(err), err)
	}

	token, err := s.tokens.Issue(user.ID, user.Email)
	if err != nil {
		return AuthResult{}, errx.E(op, errx.Internal, err)
	}

	s.logger.InfoContext(ctx, "user registered",
		"user_id", user.ID.String(),
	)

	return AuthResult{Token: token, User: user}, nil
}

func (s *service) Login(ctx context.Context, creds Credentials) (AuthResult, error) {
	const op = "identity.service.Login"

	if creds.Email == "" || creds.Password == "" {
		return AuthResult{}, errx.Errorf(op, errx.Invalid, "email and password are required")
	}

	// Unknown email and wrong password produce the same response so the
	// endpoint cannot be used to enumerate accounts.
	user, err := s.repo.GetActiveByEmail(ctx, creds.Email)
	if err != nil {
		if errx.KindOf(err) == errx.NotFound {
			return AuthResult{}, errx.Errorf(op, errx.Unauthorized, "invalid email or password")
		}
		return AuthResult{}, errx.E(op, errx.KindOf(err), err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(creds.Password)); err != nil {
		s.logger.WarnContext(ctx, "failed login attempt",
			"user_id", user.ID.String(),
		)
		return AuthResult{}, errx.Errorf(op, errx.Unauthorized, "invalid email or password")
	}

	token, err := s.tokens.Issue(user.ID, user.Email)
	if err != nil {
		return AuthResult{}, errx.E(op, errx.Internal, err)
	}

	s.logger.InfoContext(ctx, "user login successful",
		"user_id", user.ID.String(),
	)

	return AuthResult{Token: token, User: user}, nil
}

func (s *service) Me(ctx context.Context, userID uuid.UUID) (User, error) {
	const op = "identity.service.Me"

	user, err := s.repo.GetActiveByID(ctx, userID)
	if err != nil {
		return User{}, errx.E(op, errx.KindOf(err), err)
	}
	return user, nil
}

func (s *service) ResolvePrincipal(ctx context.Context, token string) (auth.Principal, error) {
	const op = "identity.service.ResolvePrincipal"

	userID, _, err := s.tokens.Verify(token)
	if err != nil {
		return auth.Principal{}, errx.E(op, errx.Unauthorized, err)
	}

	// The subject must still resolve to a live user; a deleted or
	// deactivated account invalidates outstanding tokens. The stored email
	// is authoritative over the token claim.
	user, err := s.repo.GetActiveByID(ctx, userID)
	if err != nil {
		return auth.Principal{}, errx.Errorf(op, errx.Unauthorized, "token subject no longer resolves to a user")
	}

	return auth.Principal{UserID: user.ID, Email: user.Email}, nil
}

func validateEmail(email string) error {
	if email == "" {
		return errors.New("email is required")
	}
	if !emailPattern.MatchString(email) {
		return errors.New("invalid email address")
	}
	return nil
}

// validatePassword enforces the account password policy: minimum length plus
// at least one uppercase letter, lowercase letter, digit, and symbol.
func validatePassword(password string) error {
	if len(password) < MinPasswordLength {
		return errors.New("password must be at least 8 characters long")
	}
	if len(password) > MaxPasswordLength {
		return errors.New("password must not exceed 72 characters")
	}

	var hasUpper, hasLower, hasDigit, hasSymbol bool
	for _, c := range password {
		switch {
		case unicode.IsUpper(c):
			hasUpper = true
		case unicode.IsLower(c):
			hasLower = true
		case unicode.IsDigit(c):
			hasDigit = true
		default:
			hasSymbol = true
		}
	}

	switch {
	case !hasUpper:
		return errors.New("password must contain at least one uppercase letter")
	case !hasLower:
		return errors.New("password must contain at least one lowercase letter")
	case !hasDigit:
		return errors.New("password must contain at least one digit")
	case !hasSymbol:
		return errors.New("password must contain at least one symbol")
	}
	return nil
}
