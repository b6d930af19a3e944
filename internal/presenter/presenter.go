package presenter

import (
	"strings"

	"github.com/park285/chessboard-core/pkg/boarddto"
)

// Presenter delivers formatted messages and board images without coupling to
// the command layer.
type Presenter struct {
	sendMessage func(message string) error
	sendImage   func(png []byte) error
}

func NewPresenter(sendMessage func(message string) error, sendImage func(png []byte) error) *Presenter {
	return &Presenter{
		sendMessage: sendMessage,
		sendImage:   sendImage,
	}
}

func (p *Presenter) Message(message string) error {
	if p == nil || p.sendMessage == nil {
		return nil
	}
	if strings.TrimSpace(message) == "" {
		return nil
	}
	return p.sendMessage(message)
}

func (p *Presenter) Board(message string, state *boarddto.SessionState) error {
	if p == nil {
		return nil
	}
	if err := p.Message(message); err != nil {
		return err
	}
	if state != nil && len(state.BoardImage) > 0 && p.sendImage != nil {
		if err := p.sendImage(state.BoardImage); err != nil {
			return err
		}
	}
	return nil
}
