package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"grix-mcp/internal/cache"
	"grix-mcp/internal/domain"
	"grix-mcp/internal/grix"
	"grix-mcp/internal/metrics"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

type OptionBoardFetcher interface {
	FetchOptionBoard(ctx context.Context, asset, optionType, positionType string, protocols []string) ([]grix.RawOption, error)
}

type OptionsCache = cache.TTLCache[string, []domain.OptionRecord]

func NewOptionsCache(ttl time.Duration) *OptionsCache {
	return cache.NewTTLCache[string, []domain.OptionRecord](ttl)
}

// OptionsService serves option boards from a per-query TTL cache and refreshes
// from upstream when an entry is stale. Concurrent stale readers may both
// refresh; the last store wins.
type OptionsService struct {
	tracer    trace.Tracer
	fetcher   OptionBoardFetcher
	store     *OptionsCache
	protocols []string
	now       func() time.Time
	log       zerolog.Logger
}

func NewOptionsService(tracer trace.Tracer, fetcher OptionBoardFetcher, store *OptionsCache, now func() time.Time, log zerolog.Logger) *OptionsService {
	if now == nil {
		now = time.Now
	}
	return &OptionsService{
		tracer:    tracer,
		fetcher:   fetcher,
		store:     store,
		protocols: domain.DefaultProtocols,
		now:       now,
		log:       log.With().Str("component", "options_service").Logger(),
	}
}

func (s *OptionsService) GetOptions(ctx context.Context, q domain.OptionQuery) ([]domain.FormattedOption, error) {
	ctx, span := s.tracer.Start(ctx, "options-service.get-options")
	defer span.End()
	span.SetAttributes(attribute.String("options.key", q.Key()))

	key := q.Key()
	if s.store.IsStale(key, s.now()) {
		metrics.OptionsCacheLookups.WithLabelValues("miss").Inc()
		if _, err := s.Refresh(ctx, q); err != nil {
			span.RecordError(err)
			return nil, err
		}
	} else {
		metrics.OptionsCacheLookups.WithLabelValues("hit").Inc()
	}

	records := s.store.Get(key).Payload
	out := make([]domain.FormattedOption, 0, len(records))
	for _, rec := range records {
		out = append(out, rec.Format())
	}
	return out, nil
}

// Refresh fetches the board for q unconditionally and replaces its cache entry.
func (s *OptionsService) Refresh(ctx context.Context, q domain.OptionQuery) (int, error) {
	raw, err := s.fetcher.FetchOptionBoard(ctx, q.Asset, q.OptionType, q.PositionType, s.protocols)
	if err != nil {
		s.log.Error().Err(err).Str("key", q.Key()).Msg("Option board refresh failed")
		return 0, fmt.Errorf("fetch options %s: %w", q.Key(), err)
	}

	records := make([]domain.OptionRecord, 0, len(raw))
	for _, r := range raw {
		records = append(records, r.Record())
	}
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Strike.LessThan(records[j].Strike)
	})

	s.store.Store(q.Key(), records, s.now())
	s.log.Debug().Str("key", q.Key()).Int("count", len(records)).Msg("Option board cached")
	return len(records), nil
}
