package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/superfeelapi/goEmotionFusion/business/analysis"
)

const writeWait = 5 * time.Second

// streamHeartRate upgrades to a websocket and writes every monitor reading
// as JSON until the client goes away. The stream holds the monitor for its
// lifetime.
func (h *handlers) streamHeartRate(w http.ResponseWriter, r *http.Request) {
	if h.monitor == nil {
		h.fail(w, r, fmt.Errorf("%w: heart-rate monitor not configured", analysis.ErrIncomplete))
		return
	}

	sub, err := h.monitor.Subscribe(r.Context(), 0)
	if err != nil {
		h.fail(w, r, analysis.Incomplete("heart rate monitor", err))
		return
	}
	defer sub.Unsubscribe()

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Errorw("api: streamHeartRate: upgrade", "ERROR", err)
		return
	}
	defer conn.Close()

	h.logger.Infow("api: streamHeartRate: G started", "remote", r.RemoteAddr)
	defer func() {
		h.logger.Infow("api: streamHeartRate: G completed", "remote", r.RemoteAddr, "dropped", sub.Dropped())
	}()

	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case reading, ok := <-sub.C():
			if !ok {
				return
			}
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(reading); err != nil {
				h.logger.Errorw("api: streamHeartRate: conn.WriteJSON", "ERROR", err)
				return
			}

		case <-gone:
			return
		}
	}
}
