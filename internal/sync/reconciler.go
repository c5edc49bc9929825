package sync

import (
	"github.com/matheus3301/chatsync/internal/store"
	"go.uber.org/zap"
)

// Reconciler applies server-confirmed messages to the store, swapping the
// matching optimistic placeholder in place when there is one.
type Reconciler struct {
	store  *store.Store
	logger *zap.Logger
}

// NewReconciler creates a new reconciler.
func NewReconciler(s *store.Store, logger *zap.Logger) *Reconciler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reconciler{store: s, logger: logger}
}

// Apply merges a confirmed message. Malformed records are dropped and false
// is returned.
func (r *Reconciler) Apply(msg store.Message) (store.UpsertResult, bool) {
	if !msg.Valid() || msg.Pending() {
		r.logger.Warn("dropping malformed inbound message",
			zap.String("msg_id", msg.ID),
			zap.String("chat_id", msg.ChatID),
			zap.String("sender_id", msg.Sender.ID),
		)
		return store.UpsertResult{}, false
	}

	res := r.store.UpsertMessage(msg.ChatID, msg)
	if res.TempID != "" {
		r.logger.Debug("optimistic message confirmed",
			zap.String("chat_id", msg.ChatID),
			zap.String("temp_id", res.TempID),
			zap.String("msg_id", msg.ID),
			zap.Int("index", res.Index),
		)
		return res, true
	}
	r.logger.Debug("inbound message applied",
		zap.String("chat_id", msg.ChatID),
		zap.String("msg_id", msg.ID),
		zap.Bool("appended", res.Appended),
		zap.Bool("updated", res.Updated),
	)
	return res, true
}
