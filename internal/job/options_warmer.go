package job

import (
	"context"
	"time"

	"grix-mcp/internal/domain"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"
)

// OptionsWarmer periodically refreshes every supported option board so that
// tool calls are served from a fresh cache.
type OptionsWarmer struct {
	tracer    trace.Tracer
	refresher OptionsRefresher
	interval  time.Duration
	log       zerolog.Logger
}

type OptionsRefresher interface {
	Refresh(ctx context.Context, q domain.OptionQuery) (int, error)
}

func NewOptionsWarmer(tracer trace.Tracer, refresher OptionsRefresher, interval time.Duration, log zerolog.Logger) *OptionsWarmer {
	return &OptionsWarmer{
		tracer:    tracer,
		refresher: refresher,
		interval:  interval,
		log:       log.With().Str("component", "options_warmer").Logger(),
	}
}

// Start warms once, then on every tick. Blocks until ctx is cancelled.
func (w *OptionsWarmer) Start(ctx context.Context) {
	if w.refresher == nil || w.interval <= 0 {
		w.log.Info().Msg("Options warmer disabled")
		<-ctx.Done()
		return
	}

	w.log.Info().Dur("interval", w.interval).Msg("Options warmer starting")
	w.warmAll(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Options warmer stopped")
			return
		case <-ticker.C:
			w.warmAll(ctx)
		}
	}
}

func (w *OptionsWarmer) warmAll(ctx context.Context) {
	ctx, span := w.tracer.Start(ctx, "options-warmer.warm-all")
	defer span.End()

	for _, q := range AllOptionQueries() {
		if ctx.Err() != nil {
			return
		}
		n, err := w.refresher.Refresh(ctx, q)
		if err != nil {
			w.log.Warn().Err(err).Str("key", q.Key()).Msg("Options warm failed")
			continue
		}
		w.log.Debug().Str("key", q.Key()).Int("count", n).Msg("Options warmed")
	}
}

// AllOptionQueries enumerates every supported asset/option/position triple.
func AllOptionQueries() []domain.OptionQuery {
	out := make([]domain.OptionQuery, 0, len(domain.SupportedAssets)*len(domain.SupportedOptionTypes)*len(domain.SupportedPositionTypes))
	for _, asset := range domain.SupportedAssets {
		for _, ot := range domain.SupportedOptionTypes {
			for _, pt := range domain.SupportedPositionTypes {
				out = append(out, domain.OptionQuery{Asset: asset, OptionType: ot, PositionType: pt})
			}
		}
	}
	return out
}
