package settlement

import (
	"context"
	"log/slog"
	"time"

	"github.com/greenpay/greenpay/internal/ledger"
	"github.com/greenpay/greenpay/internal/metrics"
)

// Worker completes processing transactions once their settle-at time has
// passed. The schedule lives in the transaction records themselves, so a
// restart picks up where the previous process stopped instead of stranding
// in-flight transactions. A completion that fails is retried on the next
// tick.
type Worker struct {
	ledger   *ledger.Service
	interval time.Duration
	logger   *slog.Logger
}

// NewWorker builds a settlement worker polling at the given interval.
func NewWorker(svc *ledger.Service, interval time.Duration, logger *slog.Logger) *Worker {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	return &Worker{ledger: svc, interval: interval, logger: logger}
}

// Run polls until the context is cancelled.
func (w *Worker) Run(ctx context.Context) {
	w.logger.Info("settlement worker started", "interval", w.interval)
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("settlement worker stopped")
			return
		case <-ticker.C:
			w.tick(ctx)
		}
	}
}

func (w *Worker) tick(ctx context.Context) {
	due, err := w.ledger.DueForSettlement(ctx, time.Now().UTC())
	if err != nil {
		w.logger.Error("settlement scan failed", "error", err)
		return
	}

	for _, txn := range due {
		if _, err := w.ledger.UpdateStatus(ctx, txn.ID, ledger.StatusCompleted); err != nil {
			w.logger.Error("settlement completion failed",
				"transaction_id", txn.ID, "error", err)
			continue
		}
		metrics.SettlementsCompleted.Inc()
		w.logger.Info("transaction settled", "transaction_id", txn.ID, "type", string(txn.Type))
	}

	if outstanding, err := w.ledger.AwaitingSettlement(ctx); err == nil {
		metrics.SettlementsPending.Set(float64(outstanding))
	}
}
