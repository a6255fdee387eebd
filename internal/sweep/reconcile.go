package sweep

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"SessionRecon/internal/clock"
	"SessionRecon/internal/log"
	"SessionRecon/internal/metrics"
	"SessionRecon/internal/models"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Reconciler is the ground-truth auditor: it inspects every reserved session,
// checks the reservation against the linked order's real status, and releases
// anything no longer justified. Each correction leaves an audit trail entry.
type Reconciler struct {
	Store   ReconcileStore
	Clock   clock.Clock
	Timeout time.Duration

	logger zerolog.Logger
}

func NewReconciler(st ReconcileStore, clk clock.Clock, timeout time.Duration) *Reconciler {
	return &Reconciler{
		Store:   st,
		Clock:   clk,
		Timeout: timeout,
		logger:  log.WithComponent("sweep.reconcile"),
	}
}

// OrphanDetail identifies one released session and why it was released.
type OrphanDetail struct {
	ID     string `json:"id"`
	Type   string `json:"type"`
	Reason string `json:"reason"`
}

// ReconcileResult is the JSON body of a reconcile-sessions run. It is the
// subsystem's primary observability surface; field names are load-bearing.
type ReconcileResult struct {
	Success    bool           `json:"success"`
	Message    string         `json:"message"`
	Checked    int            `json:"checked"`
	Reconciled int            `json:"reconciled"`
	ByType     map[string]int `json:"by_type,omitempty"`
	Details    []OrphanDetail `json:"details,omitempty"`
}

func (r *Reconciler) Run(ctx context.Context) (ReconcileResult, error) {
	now := r.Clock.Now()

	sessions, err := r.Store.ListReservedSessions(ctx)
	if err != nil {
		metrics.RecordSweepRun("reconcile", err)
		return ReconcileResult{}, err
	}
	if len(sessions) == 0 {
		metrics.RecordSweepRun("reconcile", nil)
		return ReconcileResult{Success: true, Message: "No reserved sessions to reconcile"}, nil
	}
	r.logger.Info().Int("reserved", len(sessions)).Msg("checking reserved sessions")

	orderIDs := distinctOrderIDs(sessions)
	statuses, err := r.Store.GetOrderStatuses(ctx, orderIDs)
	if err != nil {
		metrics.RecordSweepRun("reconcile", err)
		return ReconcileResult{}, err
	}

	type orphan struct {
		session models.SessionFile
		reason  string
	}
	var orphans []orphan
	for _, sf := range sessions {
		if reason, ok := classifyReservation(sf, statuses, now, r.Timeout); ok {
			orphans = append(orphans, orphan{session: sf, reason: reason})
		}
	}

	result := ReconcileResult{Success: true, Checked: len(sessions)}
	if len(orphans) == 0 {
		result.Message = "All reserved sessions have valid orders"
		metrics.RecordSweepRun("reconcile", nil)
		return result, nil
	}

	ids := make([]string, 0, len(orphans))
	for _, o := range orphans {
		ids = append(ids, o.session.ID)
	}
	released, err := r.Store.ReleaseSessionsByIDs(ctx, ids)
	if err != nil {
		metrics.RecordSweepRun("reconcile", err)
		return ReconcileResult{}, err
	}

	result.Reconciled = len(orphans)
	result.Message = fmt.Sprintf("Reconciled %d orphaned sessions", len(orphans))
	result.ByType = make(map[string]int, 2)
	for _, o := range orphans {
		result.ByType[o.session.Type]++
		result.Details = append(result.Details, OrphanDetail{
			ID:     o.session.ID,
			Type:   o.session.Type,
			Reason: o.reason,
		})
		metrics.RecordOrphan(reasonClass(o.reason))
	}

	// Full recount per touched type, not incremental arithmetic, so any prior
	// counter drift is corrected in the same pass.
	SyncInventory(ctx, r.Store, now, r.logger, releasedTypes(released))

	entries := make([]models.AuditLogEntry, 0, len(orphans))
	for _, o := range orphans {
		details, err := json.Marshal(map[string]any{
			"session_id":        o.session.ID,
			"file_name":         o.session.FileName,
			"type":              o.session.Type,
			"previous_order_id": o.session.ReservedForOrder,
			"reserved_at":       o.session.ReservedAt,
			"reason":            o.reason,
			"reconciled_at":     now.Format(time.RFC3339),
		})
		if err != nil {
			r.logger.Error().Err(err).Str("session_id", o.session.ID).Msg("audit details marshal failed")
			continue
		}
		entries = append(entries, models.AuditLogEntry{
			ID:       uuid.NewString(),
			UserID:   models.SystemUserID,
			Action:   "session_reconciliation",
			Resource: "session_files",
			Details:  details,
		})
	}
	if err := r.Store.InsertAuditLogs(ctx, entries); err != nil {
		// reconciliation succeeded; losing the forensic record is not fatal
		r.logger.Error().Err(err).Msg("audit log insert failed")
	}

	metrics.RecordSweepRun("reconcile", nil)
	metrics.RecordSessionsReleased("reconcile", len(released))
	r.logger.Info().
		Int("checked", result.Checked).
		Int("reconciled", result.Reconciled).
		Msg("reconciliation complete")
	return result, nil
}

func distinctOrderIDs(sessions []models.SessionFile) []string {
	seen := make(map[string]struct{}, len(sessions))
	var ids []string
	for _, sf := range sessions {
		if sf.ReservedForOrder == nil || *sf.ReservedForOrder == "" {
			continue
		}
		if _, ok := seen[*sf.ReservedForOrder]; ok {
			continue
		}
		seen[*sf.ReservedForOrder] = struct{}{}
		ids = append(ids, *sf.ReservedForOrder)
	}
	return ids
}
