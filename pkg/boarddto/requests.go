package boarddto

type MoveRequest struct {
	From string `json:"from"`
	To   string `json:"to"`
}
