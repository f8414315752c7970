package worker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/superfeelapi/goEmotionFusion/business/emotion"
	"github.com/superfeelapi/goEmotionFusion/foundation/state"
)

// historyOperation persists every result produced by the pipeline. Save
// failures are logged and dropped.
func (w *Worker) historyOperation() {
	w.logger.Infow("worker: historyOperation: G started")
	defer w.logger.Infow("worker: historyOperation: G completed")

	w.logger.Infow("worker: historyOperation: G listening")
	for {
		select {
		case result := <-w.historyCh:
			if w.history == nil || !w.state.Get(state.Store) {
				continue
			}

			rec := emotion.NewRecord(w.config.UserID, result, time.Now())
			rec.ID = uuid.NewString()

			if err := w.history.Save(context.Background(), rec); err != nil {
				w.logger.Errorw("worker: historyOperation", "source", rec.Source, "ERROR", err)
			}

		case <-w.shut:
			w.logger.Infow("worker: historyOperation: received shut signal")
			return
		}
	}
}

// tailOperation logs the records published on the redis history channel.
func (w *Worker) tailOperation() {
	w.logger.Infow("worker: tailOperation: G started")
	defer w.logger.Infow("worker: tailOperation: G completed")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	msgCh, err := w.redis.Consume(ctx)
	if err != nil {
		w.logger.Errorw("worker: tailOperation: redis.Consume", "ERROR", err)
		w.state.Set(state.Redis, false)
		return
	}

	w.logger.Infow("worker: tailOperation: G listening", "channel", w.redis.HistoryChannel)
	for {
		select {
		case msg, ok := <-msgCh:
			if !ok {
				w.logger.Infow("worker: tailOperation: subscription closed")
				w.state.Set(state.Redis, false)
				return
			}

			var rec emotion.Record
			if err := json.Unmarshal([]byte(msg.Payload), &rec); err != nil {
				w.logger.Errorw("worker: tailOperation: json.Unmarshal", "ERROR", err)
				continue
			}
			w.logger.Infow("worker: tailOperation:", "id", rec.ID, "source", rec.Source, "emotion", rec.Label)

		case <-w.shut:
			w.logger.Infow("worker: tailOperation: received shut signal")
			return
		}
	}
}
