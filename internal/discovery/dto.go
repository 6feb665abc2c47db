package discovery

// DTOs for API requests/responses

type SwipeRequestDTO struct {
	TargetID  int64  `json:"target_id" validate:"required"`
	Direction string `json:"direction" validate:"required,oneof=like pass"`
}

type CompatibilityResponseDTO struct {
	UserID    int64           `json:"user_id"`
	TargetID  int64           `json:"target_id"`
	Score     int             `json:"score"`
	Unknown   bool            `json:"unknown"`
	Low       bool            `json:"low"`
	Breakdown *ScoreBreakdown `json:"breakdown,omitempty"`
}

type CandidateDTO struct {
	Profile    *UserProfile `json:"profile"`
	DistanceKm float64      `json:"distance_km"`
}

type CandidateListDTO struct {
	Candidates []CandidateDTO `json:"candidates"`
	Count      int            `json:"count"`
}

type UndoAvailabilityDTO struct {
	Available bool `json:"available"`
}
