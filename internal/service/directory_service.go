package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/mlefebvre/budget-approval-api/internal/models"
	"github.com/mlefebvre/budget-approval-api/internal/repository"
	appErrors "github.com/mlefebvre/budget-approval-api/pkg/errors"
)

type actorReader interface {
	GetByID(ctx context.Context, id string) (*models.Actor, error)
	ListActiveByRole(ctx context.Context, role models.Role) ([]models.Actor, error)
}

type directoryCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

// DirectoryService reads the actor directory through a short-lived cache.
// The directory is provisioned by an external identity system; this service
// only ever reads it, so stale entries are bounded by the TTL and harmless.
type DirectoryService struct {
	actors actorReader
	cache  directoryCache
	ttl    time.Duration
	logger *zap.Logger
}

// NewDirectoryService constructs the service. A nil cache disables caching.
func NewDirectoryService(actors actorReader, cache directoryCache, ttl time.Duration, logger *zap.Logger) *DirectoryService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &DirectoryService{actors: actors, cache: cache, ttl: ttl, logger: logger}
}

// GetActor resolves one directory entry, cache first.
func (s *DirectoryService) GetActor(ctx context.Context, id string) (*models.Actor, error) {
	key := fmt.Sprintf("directory:actor:%s", id)
	if s.cache != nil {
		var cached models.Actor
		if err := s.cache.Get(ctx, key, &cached); err == nil {
			return &cached, nil
		} else if !errors.Is(err, appErrors.ErrCacheMiss) {
			s.logger.Warn("directory cache read failed", zap.String("key", key), zap.Error(err))
		}
	}

	actor, err := s.actors.GetByID(ctx, id)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, appErrors.ErrActorNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, appErrors.ErrStoreUnavailable.Message)
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, actor, s.ttl); err != nil {
			s.logger.Warn("directory cache write failed", zap.String("key", key), zap.Error(err))
		}
	}
	return actor, nil
}

// ListActiveByRole returns every active actor holding the role, cache first.
func (s *DirectoryService) ListActiveByRole(ctx context.Context, role models.Role) ([]models.Actor, error) {
	key := fmt.Sprintf("directory:role:%s", role)
	if s.cache != nil {
		var cached []models.Actor
		if err := s.cache.Get(ctx, key, &cached); err == nil {
			return cached, nil
		} else if !errors.Is(err, appErrors.ErrCacheMiss) {
			s.logger.Warn("directory cache read failed", zap.String("key", key), zap.Error(err))
		}
	}

	actors, err := s.actors.ListActiveByRole(ctx, role)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, appErrors.ErrStoreUnavailable.Message)
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, actors, s.ttl); err != nil {
			s.logger.Warn("directory cache write failed", zap.String("key", key), zap.Error(err))
		}
	}
	return actors, nil
}
