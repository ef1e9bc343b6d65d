package handler

import (
	"fmt"
	"net/http"
	"strconv"
	"todo_collab/internal/api/middleware"
	"todo_collab/internal/common"
	"todo_collab/internal/common/security"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
)

// respondErr writes err to the client and logs server-side failures.
func respondErr(w http.ResponseWriter, r *http.Request, err error) {
	if common.HTTPStatusFromError(err) == http.StatusInternalServerError {
		log.Error("request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"request_id", chiMiddleware.GetReqID(r.Context()),
			"err", err)
	}
	common.RespondWithErr(w, err)
}

// currentIdentity returns the caller resolved by the authenticator.
func currentIdentity(w http.ResponseWriter, r *http.Request) (security.Identity, bool) {
	ident, ok := middleware.GetIdentityFromContext(r.Context())
	if !ok {
		common.RespondWithError(w, http.StatusUnauthorized, "Authentication required")
	}
	return ident, ok
}

// allowed turns a guard decision into a response. Lookup and identity
// errors keep their own status; a false decision is 403.
func allowed(w http.ResponseWriter, r *http.Request, ok bool, err error) bool {
	if err != nil {
		respondErr(w, r, err)
		return false
	}
	if !ok {
		common.RespondWithError(w, http.StatusForbidden, common.ErrForbidden.Error())
		return false
	}
	return true
}

func parseID(raw, name string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s %q: %w", name, raw, common.ErrBadRequest)
	}
	return id, nil
}

func pathID(r *http.Request, name string) (int64, error) {
	return parseID(chi.URLParam(r, name), name)
}

func queryID(r *http.Request, name string) (int64, error) {
	return parseID(r.URL.Query().Get(name), name)
}
