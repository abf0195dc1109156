package shortener

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/linkforge/linkforge/codegen"
	"github.com/linkforge/linkforge/internal/errx"
	"github.com/linkforge/linkforge/internal/metrics"
)

const (
	DefaultCodeLength      = codegen.DefaultLength
	DefaultCodeMaxAttempts = 5
	defaultClickTimeout    = 5 * time.Second
)

// Service defines the business logic operations for URL shortening.
type Service interface {
	// Create shortens a URL, optionally on behalf of an owning user.
	Create(ctx context.Context, destinationURL string, ownerID *uuid.UUID) (ShortLink, error)

	// Resolve returns the destination for a code and records the click
	// without delaying the caller.
	Resolve(ctx context.Context, code string) (string, error)

	// Info returns link metadata for a code.
	Info(ctx context.Context, code string) (ShortLink, error)

	// ListOwned returns the user's links, newest first.
	ListOwned(ctx context.Context, userID uuid.UUID) ([]ShortLink, error)

	// UpdateOwned changes the destination of a link the user owns.
	UpdateOwned(ctx context.Context, userID, linkID uuid.UUID, destinationURL string) (ShortLink, error)

	// DeleteOwned soft-deletes a link the user owns.
	DeleteOwned(ctx context.Context, userID, linkID uuid.UUID) error
}

type service struct {
	repo            Repository
	codeGenerator   codegen.Generator
	logger          *slog.Logger
	metrics         *metrics.Metrics
	codeLength      int
	codeMaxAttempts int
	clickTimeout    time.Duration
}

// ServiceConfig holds configuration for the service.
type ServiceConfig struct {
	CodeGenerator   codegen.Generator
	Logger          *slog.Logger
	Metrics         *metrics.Metrics // optional; nil disables instrumentation
	CodeLength      int              // generated code length (default: 6)
	CodeMaxAttempts int              // attempts when generating a unique code (default: 5)
	ClickTimeout    time.Duration    // budget for the detached click-recording update
}

// NewService creates a new service instance.
func NewService(repo Repository, config *ServiceConfig) Service {
	if config == nil {
		config = &ServiceConfig{}
	}

	gen := config.CodeGenerator
	if gen == nil {
		gen = codegen.NewAlphanumeric()
	}

	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	length := config.CodeLength
	if length <= 0 {
		length = DefaultCodeLength
	}

	attempts := config.CodeMaxAttempts
	if attempts <= 0 {
		attempts = DefaultCodeMaxAttempts
	}

	timeout := config.ClickTimeout
	if timeout <= 0 {
		timeout = defaultClickTimeout
	}

	return &service{
		repo:            repo,
		codeGenerator:   gen,
		logger:          logger,
		metrics:         config.Metrics,
		codeLength:      length,
		codeMaxAttempts: attempts,
		clickTimeout:    timeout,
	}
}

func (s *service) Create(ctx context.Context, destinationURL string, ownerID *uuid.UUID) (ShortLink, error) {
	const op = "shortener.service.Create"

	if err := ValidateDestinationURL(destinationURL); err != nil {
		return ShortLink{}, errx.E(op, errx.Invalid, err)
	}

	for range s.codeMaxAttempts {
		code, err := s.codeGenerator.Generate(s.codeLength)
		if err != nil {
			return ShortLink{}, errx.E(op, errx.Unavailable, err)
		}

		// Cheap pre-check; the insert below still races with concurrent
		// creations, so a unique-constraint Conflict counts as a collision
		// and burns an attempt rather than surfacing.
		_, err = s.repo.GetByCode(ctx, code)
		if err == nil {
			continue
		}
		if errx.KindOf(err) != errx.NotFound {
			return ShortLink{}, errx.E(op, errx.KindOf(err), err)
		}

		created, err := s.repo.Create(ctx, ShortLink{
			Code:           code,
			DestinationURL: destinationURL,
			OwnerID:        ownerID,
		})
		if err == nil {
			s.metrics.URLCreated()
			return created, nil
		}
		if errx.KindOf(err) != errx.Conflict {
			return ShortLink{}, errx.E(op, errx.KindOf(err), err)
		}
	}

	// Either the code space is too full or the randomness source has
	// degenerated; operational trouble, not caller error.
	return ShortLink{}, errx.Errorf(op, errx.Internal,
		"could not generate unique code after %d attempts", s.codeMaxAttempts)
}

func (s *service) Resolve(ctx context.Context, code string) (string, error) {
	const op = "shortener.service.Resolve"

	if code == "" {
		return "", errx.Errorf(op, errx.Invalid, "code cannot be empty")
	}

	link, err := s.repo.GetByCode(ctx, code)
	if err != nil {
		return "", errx.E(op, errx.KindOf(err), err)
	}

	// Fire and forget: the redirect must never wait on click accounting.
	// Keyed by the immutable id so a reassigned code cannot misattribute.
	go s.recordClick(link.ID)

	return link.DestinationURL, nil
}

// recordClick runs detached from the request; by the time it executes the
// redirect response is already on the wire, so failures are logged and
// swallowed. A vanished link is expected under concurrent deletion and is
// dropped silently.
func (s *service) recordClick(linkID uuid.UUID) {
	ctx, cancel := context.WithTimeout(context.Background(), s.clickTimeout)
	defer cancel()

	if err := s.repo.RecordClick(ctx, linkID); err != nil {
		if errx.KindOf(err) == errx.NotFound {
			return
		}
		s.logger.Error("failed to record click",
			"link_id", linkID.String(),
			"error", err.Error(),
		)
		return
	}
	s.metrics.URLClicked()
}

func (s *service) Info(ctx context.Context, code string) (ShortLink, error) {
	const op = "shortener.service.Info"

	if code == "" {
		return ShortLink{}, errx.Errorf(op, errx.Invalid, "code cannot be empty")
	}

	link, err := s.repo.GetByCode(ctx, code)
	if err != nil {
		return ShortLink{}, errx.E(op, errx.KindOf(err), err)
	}
	return link, nil
}

func (s *service) ListOwned(ctx context.Context, userID uuid.UUID) ([]ShortLink, error) {
	const op = "shortener.service.ListOwned"

	links, err := s.repo.ListByOwner(ctx, userID)
	if err != nil {
		return nil, errx.E(op, errx.KindOf(err), err)
	}
	return links, nil
}

func (s *service) UpdateOwned(ctx context.Context, userID, linkID uuid.UUID, destinationURL string) (ShortLink, error) {
	const op = "shortener.service.UpdateOwned"

	if err := s.checkOwnership(ctx, op, userID, linkID); err != nil {
		return ShortLink{}, err
	}

	if err := ValidateDestinationURL(destinationURL); err != nil {
		return ShortLink{}, errx.E(op, errx.Invalid, err)
	}

	updated, err := s.repo.UpdateDestination(ctx, linkID, destinationURL)
	if err != nil {
		return ShortLink{}, errx.E(op, errx.KindOf(err), err)
	}
	return updated, nil
}

func (s *service) DeleteOwned(ctx context.Context, userID, linkID uuid.UUID) error {
	const op = "shortener.service.DeleteOwned"

	if err := s.checkOwnership(ctx, op, userID, linkID); err != nil {
		return err
	}

	if err := s.repo.SoftDelete(ctx, linkID); err != nil {
		return errx.E(op, errx.KindOf(err), err)
	}
	return nil
}

// checkOwnership verifies the link exists and belongs to the user.
// Anonymous links (nil owner) are immutable through the owned paths.
func (s *service) checkOwnership(ctx context.Context, op string, userID, linkID uuid.UUID) error {
	link, err := s.repo.GetByID(ctx, linkID)
	if err != nil {
		return errx.E(op, errx.KindOf(err), err)
	}

	if link.OwnerID == nil || *link.OwnerID != userID {
		return errx.Errorf(op, errx.Forbidden, "link is not owned by this user")
	}
	return nil
}
