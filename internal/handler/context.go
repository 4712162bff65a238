package handler

import (
	"net/http"

	"github.com/roadside-ops/mission-log/backend/internal/domain"
)

type ContextKey string

var IdentityCtx ContextKey = "identity"

// identityFrom returns the caller attached by the authenticate middleware, or nil.
func identityFrom(r *http.Request) *domain.Identity {
	identity, _ := r.Context().Value(IdentityCtx).(*domain.Identity)
	return identity
}
