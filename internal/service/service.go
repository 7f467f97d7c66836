package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"salonpos/backend/internal/cache"
	"salonpos/backend/internal/domain"
	"salonpos/backend/internal/events"
	"salonpos/backend/internal/notify"
	"salonpos/backend/internal/store"
	"salonpos/backend/internal/xid"
)

var (
	ErrForbidden          = errors.New("admin role required")
	ErrUnauthenticated    = errors.New("authentication required")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrPendingApproval    = errors.New("your account is pending admin approval")
	ErrAccountRejected    = errors.New("your account request was rejected")
)

// ValidationError carries a message that is safe to show to the operator.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func invalidf(format string, args ...any) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// ConflictError is a user-facing conflict message that still matches
// store.ErrConflict.
type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string {
	return e.Message
}

func (e *ConflictError) Unwrap() error {
	return store.ErrConflict
}

func conflictf(format string, args ...any) error {
	return &ConflictError{Message: fmt.Sprintf(format, args...)}
}

type actorContextKey struct{}

func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

func ActorFromContext(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(domain.Actor)
	return actor, ok
}

type Options struct {
	Cache      cache.CatalogCache
	CatalogTTL time.Duration
	Publisher  events.Publisher
	Receipts   notify.ReceiptSender
	Location   *time.Location
}

type Service struct {
	repo       store.Repository
	cache      cache.CatalogCache
	catalogTTL time.Duration
	publisher  events.Publisher
	receipts   notify.ReceiptSender
	loc        *time.Location
	now        func() time.Time

	draftsMu sync.Mutex
	drafts   map[string]*draftSession

	pending sync.WaitGroup
}

const receiptTimeout = 8 * time.Second

func New(repo store.Repository, opts Options) *Service {
	if opts.Cache == nil {
		opts.Cache = cache.NoopCatalogCache{}
	}
	if opts.CatalogTTL <= 0 {
		opts.CatalogTTL = 5 * time.Minute
	}
	if opts.Publisher == nil {
		opts.Publisher = events.NoopPublisher{}
	}
	if opts.Receipts == nil {
		opts.Receipts = notify.NoopReceiptSender{}
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}

	return &Service{
		repo:       repo,
		cache:      opts.Cache,
		catalogTTL: opts.CatalogTTL,
		publisher:  opts.Publisher,
		receipts:   opts.Receipts,
		loc:        opts.Location,
		now:        time.Now,
		drafts:     make(map[string]*draftSession),
	}
}

// Location is the zone used for calendar-day boundaries in reports.
func (s *Service) Location() *time.Location {
	return s.loc
}

func requireAdmin(ctx context.Context) (domain.Actor, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		return domain.Actor{}, ErrUnauthenticated
	}
	if actor.Role != domain.RoleAdmin {
		return domain.Actor{}, ErrForbidden
	}
	return actor, nil
}

func requireActor(ctx context.Context) (domain.Actor, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.ID == "" {
		return domain.Actor{}, ErrUnauthenticated
	}
	return actor, nil
}

func (s *Service) logAudit(ctx context.Context, action string, entityType string, entityID string, detail string) {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		actor = domain.Actor{ID: "system", Role: "system"}
	}

	if err := s.repo.CreateAuditLog(ctx, domain.AuditLog{
		ID:         xid.New(),
		ActorID:    actor.ID,
		ActorRole:  actor.Role,
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		Detail:     detail,
		CreatedAt:  s.now().UTC(),
	}); err != nil {
		log.Printf("[audit] WARN: failed to write audit log action=%s entity=%s/%s: %v", action, entityType, entityID, err)
	}
}
