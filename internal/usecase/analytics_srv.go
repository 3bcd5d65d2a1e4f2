package usecase

import (
	"context"
	"fmt"
	"time"

	"tour-booking/internal/data/entity"
	"tour-booking/internal/data/repository"
	"tour-booking/internal/dto/request"
	"tour-booking/internal/dto/response"
	"tour-booking/pkg/cache"
	"tour-booking/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const defaultWindowDays = 30

type AnalyticsService interface {
	GetAnalytics(ctx context.Context, actor Actor, req *request.AnalyticsRequest) (*response.AnalyticsSnapshot, error)
}

type analyticsService struct {
	tx         repository.Transactor
	cache      cache.Cache
	windowDays int
	cacheTTL   time.Duration
	log        *zap.Logger
	now        func() time.Time
}

// NewAnalyticsService builds the aggregator. A nil cache disables snapshot caching.
func NewAnalyticsService(tx repository.Transactor, c cache.Cache, config *utils.Config, log *zap.Logger, now func() time.Time) AnalyticsService {
	s := &analyticsService{
		tx:         tx,
		cache:      c,
		windowDays: defaultWindowDays,
		log:        log.With(zap.String("service", "analytics")),
		now:        now,
	}
	if config != nil {
		if config.Analytics.WindowDays > 0 {
			s.windowDays = config.Analytics.WindowDays
		}
		s.cacheTTL = config.Analytics.CacheTTL
	}
	return s
}

func (s *analyticsService) GetAnalytics(ctx context.Context, actor Actor, req *request.AnalyticsRequest) (*response.AnalyticsSnapshot, error) {
	if !actor.Can(entity.CapViewAnalytics) {
		return nil, fmt.Errorf("view analytics: %w", ErrForbidden)
	}
	if err := validate(req); err != nil {
		s.log.Warn("Analytics validation failed", zap.Error(err))
		return nil, err
	}

	filter, err := s.filterFrom(req)
	if err != nil {
		return nil, err
	}

	now := s.now()
	params := snapshotParams{
		WindowDays: req.WindowDays,
		Year:       req.Year,
		Now:        now,
	}
	if params.WindowDays == 0 {
		params.WindowDays = s.windowDays
	}
	if params.Year == 0 {
		params.Year = now.Year()
	}
	params.Scope = response.AnalyticsScope{
		CategoryID: req.CategoryID,
		TourID:     req.TourID,
		WindowDays: params.WindowDays,
		Year:       params.Year,
	}

	key := cacheKey(params.Scope)
	if snapshot, ok := s.cached(ctx, key); ok {
		return snapshot, nil
	}

	var history *repository.History
	err = s.tx.WithinReadTx(ctx, func(ctx context.Context, repo *repository.Repository) error {
		h, err := repo.Analytics.LoadHistory(ctx, filter)
		if err != nil {
			return err
		}
		history = h
		return nil
	})
	if err != nil {
		s.log.Error("Failed to load analytics history", zap.Error(err))
		return nil, err
	}

	snapshot := buildSnapshot(history, params)
	s.store(ctx, key, snapshot)

	s.log.Debug("Analytics snapshot computed",
		zap.String("key", key),
		zap.Int("bookings", snapshot.TotalBookings),
		zap.Int("departures", len(snapshot.Occupancy)),
	)
	return snapshot, nil
}

func (s *analyticsService) filterFrom(req *request.AnalyticsRequest) (repository.HistoryFilter, error) {
	var f repository.HistoryFilter
	if req.CategoryID != "" {
		id, err := parseID("category", req.CategoryID)
		if err != nil {
			return f, err
		}
		f.CategoryID = &id
	}
	if req.TourID != "" {
		id, err := parseID("tour", req.TourID)
		if err != nil {
			return f, err
		}
		f.TourID = &id
	}
	return f, nil
}

func cacheKey(scope response.AnalyticsScope) string {
	return fmt.Sprintf("analytics:%s:%s:%d:%d",
		orAll(scope.CategoryID), orAll(scope.TourID), scope.WindowDays, scope.Year)
}

func orAll(id string) string {
	if id == "" {
		return "all"
	}
	// normalise so upper and lower case IDs share an entry
	if parsed, err := uuid.Parse(id); err == nil {
		return parsed.String()
	}
	return id
}

// cache failures are logged and otherwise ignored
func (s *analyticsService) cached(ctx context.Context, key string) (*response.AnalyticsSnapshot, bool) {
	if s.cache == nil || s.cacheTTL <= 0 {
		return nil, false
	}

	var snapshot response.AnalyticsSnapshot
	ok, err := s.cache.Get(ctx, key, &snapshot)
	if err != nil {
		s.log.Warn("Analytics cache read failed", zap.String("key", key), zap.Error(err))
		return nil, false
	}
	if !ok {
		return nil, false
	}
	return &snapshot, true
}

func (s *analyticsService) store(ctx context.Context, key string, snapshot *response.AnalyticsSnapshot) {
	if s.cache == nil || s.cacheTTL <= 0 {
		return
	}
	if err := s.cache.Set(ctx, key, snapshot, s.cacheTTL); err != nil {
		s.log.Warn("Analytics cache write failed", zap.String("key", key), zap.Error(err))
	}
}
