package discovery

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/TomShtern/Date-Program-sub004/internal/common/utils"
)

type Handler struct {
	service Service
	scorer  *Scorer
}

func NewHandler(service Service, scorer *Scorer) *Handler {
	return &Handler{service: service, scorer: scorer}
}

func (h *Handler) DiscoverCandidates(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value("userID").(int64)

	candidates, err := h.service.FindCandidates(r.Context(), userID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			utils.RespondWithError(w, http.StatusNotFound, err.Error())
			return
		}
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to find candidates")
		return
	}

	resp := CandidateListDTO{Candidates: make([]CandidateDTO, 0, len(candidates)), Count: len(candidates)}
	for _, c := range candidates {
		resp.Candidates = append(resp.Candidates, CandidateDTO{Profile: c.Profile, DistanceKm: c.DistanceKm})
	}
	utils.RespondWithJSON(w, http.StatusOK, resp)
}

func (h *Handler) GetCompatibility(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value("userID").(int64)

	vars := mux.Vars(r)
	targetID, err := strconv.ParseInt(vars["userId"], 10, 64)
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid user ID")
		return
	}

	score, breakdown, err := h.service.Compatibility(r.Context(), userID, targetID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			utils.RespondWithError(w, http.StatusNotFound, err.Error())
			return
		}
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to compute compatibility")
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, CompatibilityResponseDTO{
		UserID:    userID,
		TargetID:  targetID,
		Score:     score,
		Unknown:   score == ScoreUnknown,
		Low:       h.scorer.IsLowCompatibility(score),
		Breakdown: breakdown,
	})
}

func (h *Handler) GetDailyPick(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value("userID").(int64)

	pick, err := h.service.GetDailyPick(r.Context(), userID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			utils.RespondWithError(w, http.StatusNotFound, err.Error())
			return
		}
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to get daily pick")
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, pick)
}

func (h *Handler) GetDailyStatus(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value("userID").(int64)

	status, err := h.service.GetDailyStatus(r.Context(), userID)
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to get daily status")
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, status)
}

func (h *Handler) Swipe(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value("userID").(int64)

	var dto SwipeRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	if err := utils.ValidateStruct(dto); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.service.Swipe(r.Context(), userID, dto.TargetID, SwipeDirection(dto.Direction))
	if err != nil {
		switch {
		case errors.Is(err, ErrSelfSwipe), errors.Is(err, ErrInvalidSwipe):
			utils.RespondWithError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, ErrAlreadySwiped):
			utils.RespondWithError(w, http.StatusConflict, err.Error())
		case errors.Is(err, ErrUserNotFound):
			utils.RespondWithError(w, http.StatusNotFound, err.Error())
		default:
			utils.RespondWithError(w, http.StatusInternalServerError, "Failed to record swipe")
		}
		return
	}

	if !result.Allowed {
		// Quota and session-cap rejections are expected flow, not errors.
		utils.RespondWithJSON(w, http.StatusTooManyRequests, result)
		return
	}
	utils.RespondWithJSON(w, http.StatusCreated, result)
}

func (h *Handler) GetUndoAvailability(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value("userID").(int64)

	available, err := h.service.CanUndo(r.Context(), userID)
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to check undo availability")
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, UndoAvailabilityDTO{Available: available})
}

func (h *Handler) Undo(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value("userID").(int64)

	result, err := h.service.Undo(r.Context(), userID)
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to undo swipe")
		return
	}

	if !result.Undone {
		utils.RespondWithJSON(w, http.StatusConflict, result)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, result)
}

func (h *Handler) EndSession(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value("userID").(int64)

	if err := h.service.EndSession(r.Context(), userID); err != nil {
		if errors.Is(err, ErrNoActiveSession) {
			utils.RespondWithError(w, http.StatusNotFound, err.Error())
			return
		}
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to end session")
		return
	}

	utils.MessageResponse(w, "Session ended", http.StatusOK)
}

func (h *Handler) GetSessionStats(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value("userID").(int64)

	stats, err := h.service.GetSessionStats(r.Context(), userID)
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to get session stats")
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, stats)
}

func (h *Handler) GetSessionHistory(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value("userID").(int64)

	limit := 20
	if l := r.URL.Query().Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	sessions, err := h.service.GetSessionHistory(r.Context(), userID, limit)
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to get session history")
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, sessions)
}
