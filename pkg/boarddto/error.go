package boarddto

// Error codes carried by DomainError.
const (
	CodeEmptyCell          = "EMPTY_CELL"
	CodeInvalidMove        = "INVALID_MOVE"
	CodeIllegalDestination = "ILLEGAL_DESTINATION"
	CodeSessionNotFound    = "SESSION_NOT_FOUND"
	CodeSessionEnded       = "SESSION_ENDED"
	CodeConflict           = "CONFLICT"
	CodeBadRequest         = "BAD_REQUEST"
	CodeInternal           = "INTERNAL"
)

type DomainError struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable,omitempty"`
}

func (e DomainError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Code != "" {
		return e.Code
	}
	return "board service error"
}
