package discovery

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/TomShtern/Date-Program-sub004/internal/common/utils"
)

// IdentityMiddleware resolves the calling user from the X-User-ID header set
// by the gateway and stores it on the request context.
func IdentityMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, err := strconv.ParseInt(r.Header.Get("X-User-ID"), 10, 64)
		if err != nil || userID <= 0 {
			utils.RespondWithError(w, http.StatusUnauthorized, "Missing or invalid user identity")
			return
		}
		ctx := context.WithValue(r.Context(), "userID", userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func RegisterRoutes(router *mux.Router, handler *Handler) {
	api := router.PathPrefix("/api/v1/discovery").Subrouter()
	api.Use(IdentityMiddleware)

	// Candidates & compatibility
	api.HandleFunc("/candidates", handler.DiscoverCandidates).Methods("GET")
	api.HandleFunc("/compatibility/{userId}", handler.GetCompatibility).Methods("GET")

	// Daily pick & quotas
	api.HandleFunc("/daily-pick", handler.GetDailyPick).Methods("GET")
	api.HandleFunc("/daily-status", handler.GetDailyStatus).Methods("GET")

	// Swipes
	api.HandleFunc("/swipes", handler.Swipe).Methods("POST")
	api.HandleFunc("/swipes/undo", handler.Undo).Methods("POST")
	api.HandleFunc("/swipes/undo", handler.GetUndoAvailability).Methods("GET")

	// Sessions
	api.HandleFunc("/sessions/end", handler.EndSession).Methods("POST")
	api.HandleFunc("/sessions/stats", handler.GetSessionStats).Methods("GET")
	api.HandleFunc("/sessions/history", handler.GetSessionHistory).Methods("GET")
}
