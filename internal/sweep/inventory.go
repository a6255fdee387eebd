package sweep

import (
	"context"
	"time"

	"SessionRecon/internal/metrics"
	"SessionRecon/internal/models"

	"github.com/rs/zerolog"
)

// SyncInventory recounts the available sessions for each given type from the
// authoritative rows and overwrites the cached counter. A recount replaces
// whatever was stored, so repeated calls self-heal any prior drift. Per-type
// failures are logged and the remaining types still get synced.
func SyncInventory(ctx context.Context, st InventoryStore, now time.Time, logger zerolog.Logger, types []string) {
	for _, t := range types {
		count, err := st.CountAvailableSessions(ctx, t)
		if err != nil {
			logger.Error().Err(err).Str("type", t).Msg("inventory recount failed")
			continue
		}
		if err := st.UpsertInventory(ctx, t, count, now); err != nil {
			logger.Error().Err(err).Str("type", t).Msg("inventory upsert failed")
			continue
		}
		metrics.SetInventory(t, count)
		logger.Debug().Str("type", t).Int("available", count).Msg("inventory synced")
	}
}

// releasedTypes returns the distinct session types in a release result,
// so callers resync only the counters that actually changed.
func releasedTypes(released []models.ReleasedSession) []string {
	seen := make(map[string]struct{}, 2)
	var types []string
	for _, r := range released {
		if _, ok := seen[r.Type]; ok {
			continue
		}
		seen[r.Type] = struct{}{}
		types = append(types, r.Type)
	}
	return types
}
