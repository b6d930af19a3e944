package boarddto

import "time"

// ArchivedGame is one finished session as stored in the archive.
type ArchivedGame struct {
	SessionID  string    `json:"session_id"`
	Status     string    `json:"status"`
	MoveText   string    `json:"move_text"`
	FinalFEN   string    `json:"final_fen"`
	MoveCount  int       `json:"move_count"`
	Captures   int       `json:"captures"`
	StartedAt  time.Time `json:"started_at"`
	EndedAt    time.Time `json:"ended_at"`
	DurationMS int64     `json:"duration_ms"`
}
