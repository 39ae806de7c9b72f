package services

import (
	"context"

	"github.com/shopspring/decimal"
	"github.com/tresorerie/backend/internal/metrics"
	"github.com/tresorerie/backend/internal/models"
	"github.com/tresorerie/backend/internal/store"
)

// GetStats aggregates counts and totals over the filtered window. It never
// fails: storage errors are logged and zero totals returned.
func (s *LedgerService) GetStats(ctx context.Context, f models.StatsFilter) models.Stats {
	gen := noGeneration
	if s.cache != nil {
		var cached *models.Stats
		var ok bool
		if cached, gen, ok = s.cache.Get(ctx, f); ok {
			metrics.StatsCacheLookups.WithLabelValues("hit").Inc()
			return *cached
		}
		metrics.StatsCacheLookups.WithLabelValues("miss").Inc()
	}

	var stats models.Stats
	err := s.store.View(ctx, func(q store.Queries) error {
		var err error
		if stats, err = q.Stats(ctx, f, nil); err != nil {
			return err
		}
		if !s.suspicious(stats) {
			return nil
		}

		metrics.StatsAnomalies.Inc()
		s.logger.Warn("stats above sanity threshold, recomputing with per-row cap",
			"total_recettes", stats.TotalRecettes.String(),
			"total_depenses", stats.TotalDepenses.String(),
			"threshold", s.cfg.StatsSanityThreshold.String(),
			"row_cap", s.cfg.StatsRowCap.String())
		rowCap := s.cfg.StatsRowCap
		stats, err = q.Stats(ctx, f, &rowCap)
		return err
	})
	if err != nil {
		s.logger.Error("failed to compute stats", "error", err)
		return models.Stats{TotalRecettes: decimal.Zero, TotalDepenses: decimal.Zero}
	}

	if s.cache != nil {
		s.cache.Set(ctx, f, gen, stats)
	}
	return stats
}

func (s *LedgerService) suspicious(st models.Stats) bool {
	limit := s.cfg.StatsSanityThreshold
	if !limit.IsPositive() {
		return false
	}
	return st.TotalRecettes.Abs().GreaterThan(limit) || st.TotalDepenses.Abs().GreaterThan(limit)
}
