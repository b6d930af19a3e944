package boarddto

import "time"

type PieceDTO struct {
	Cell     string `json:"cell"`
	Kind     string `json:"kind"`
	Color    string `json:"color"`
	HasMoved bool   `json:"has_moved,omitempty"`
}

type SessionState struct {
	SessionID  string     `json:"session_id"`
	Status     string     `json:"status"`
	FEN        string     `json:"fen"`
	Pieces     []PieceDTO `json:"pieces"`
	Moves      []MoveDTO  `json:"moves"`
	MoveCount  int        `json:"move_count"`
	ToMove     string     `json:"to_move"`
	Selected   string     `json:"selected,omitempty"`
	Candidates []string   `json:"candidates,omitempty"`
	BoardImage []byte     `json:"-"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}
