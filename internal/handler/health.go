package handler

import (
	"context"
	"net/http"
	"time"
)

const healthTimeout = 3 * time.Second

// Health pings every dependency and answers 503 when one is down.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
	defer cancel()

	status := http.StatusOK
	checks := make(map[string]string, len(h.healthChecks))
	for name, check := range h.healthChecks {
		if err := check(ctx); err != nil {
			h.logInternalServerError(r, err)
			checks[name] = "down"
			status = http.StatusServiceUnavailable
			continue
		}
		checks[name] = "up"
	}

	h.writeJSON(w, r, status, Response{
		Success: status == http.StatusOK,
		Message: http.StatusText(status),
		Data:    checks,
	})
}
