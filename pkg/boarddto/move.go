package boarddto

type MoveDTO struct {
	From     string `json:"from"`
	To       string `json:"to"`
	Piece    string `json:"piece"`
	Captured string `json:"captured,omitempty"`
	// Notation is the long-algebraic form, e.g. "Nb1-c3" or "Ra1xa7".
	Notation string `json:"notation"`
}

// SelectionDTO lists the candidate destinations of one piece.
type SelectionDTO struct {
	Cell    string   `json:"cell"`
	Piece   string   `json:"piece"`
	Targets []string `json:"targets"`
}

// MoveSummary is the result of one applied move.
type MoveSummary struct {
	Move  MoveDTO       `json:"move"`
	State *SessionState `json:"state"`
}
