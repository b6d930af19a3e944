// Package console runs the line-oriented command loop behind cmd/chessboard.
package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/park285/chessboard-core/internal/archive"
	"github.com/park285/chessboard-core/internal/board"
	"github.com/park285/chessboard-core/internal/notation"
	"github.com/park285/chessboard-core/internal/obslog"
	"github.com/park285/chessboard-core/internal/presenter"
	"github.com/park285/chessboard-core/internal/render"
	"github.com/park285/chessboard-core/internal/session"
	"github.com/park285/chessboard-core/pkg/boarddto"
	"go.uber.org/zap"
)

var errNoSession = errors.New("no game in progress, type `new`")

// Console holds the one game played from the terminal.
type Console struct {
	mgr       *session.Manager
	renderer  render.Highlighter
	formatter *presenter.Formatter
	out       io.Writer
	prompt    string

	writeFile func(path string, data []byte) error
	sessionID string
	view      board.Color
}

func New(mgr *session.Manager, renderer render.Highlighter, formatter *presenter.Formatter, out io.Writer) *Console {
	return &Console{
		mgr:       mgr,
		renderer:  renderer,
		formatter: formatter,
		out:       out,
		prompt:    "> ",
		writeFile: func(path string, data []byte) error { return os.WriteFile(path, data, 0o644) },
	}
}

// SessionID is the id of the game in progress, or "".
func (c *Console) SessionID() string { return c.sessionID }

func (c *Console) say(message string) error {
	_, err := fmt.Fprintln(c.out, message)
	return err
}

// endTimeout bounds the cleanup End run after the loop stops.
const endTimeout = 5 * time.Second

// Run reads commands from in until EOF, quit or ctx is done. An unfinished
// game is ended on the way out, even when ctx was cancelled.
func (c *Console) Run(ctx context.Context, in io.Reader) error {
	readCtx, stop := context.WithCancel(ctx)
	defer stop()
	lines := make(chan string)
	readErr := make(chan error, 1)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-readCtx.Done():
				readErr <- nil
				return
			}
		}
		readErr <- scanner.Err()
	}()

	_ = c.say(c.formatter.Help())
	var err error
loop:
	for ctx.Err() == nil {
		fmt.Fprint(c.out, c.prompt)
		select {
		case <-ctx.Done():
			_ = c.say("")
			break loop
		case line, ok := <-lines:
			if !ok {
				err = <-readErr
				break loop
			}
			if ctx.Err() != nil || c.Exec(ctx, line) {
				break loop
			}
		}
	}
	if c.sessionID != "" {
		endCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), endTimeout)
		defer cancel()
		c.end(endCtx)
	}
	return err
}

// Exec runs one command line and reports whether the loop should stop.
func (c *Console) Exec(ctx context.Context, line string) bool {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false
	}
	cmd := strings.ToLower(fields[0])
	args := fields[1:]

	switch cmd {
	case "quit", "exit":
		return true
	case "help":
		_ = c.say(c.formatter.Help())
	case "new":
		c.start(ctx)
	case "show":
		c.show(ctx)
	case "select":
		c.selectCell(ctx, args)
	case "deselect":
		c.deselect(ctx)
	case "moves":
		c.moves(ctx, args)
	case "move":
		c.move(ctx, args)
	case "fen":
		c.fen(ctx)
	case "png":
		c.png(ctx, args)
	case "flip":
		c.view = c.view.Opponent()
		c.show(ctx)
	case "history":
		c.history(ctx)
	case "end":
		c.end(ctx)
	default:
		_ = c.say(fmt.Sprintf("unknown command %q, type `help`", cmd))
	}
	return false
}

func (c *Console) start(ctx context.Context) {
	if c.sessionID != "" {
		c.end(ctx)
	}
	s, err := c.mgr.Start(ctx)
	if err != nil {
		c.fail(err, board.NoCell, board.NoCell)
		return
	}
	c.sessionID = s.ID
	_ = c.say(c.formatter.Started(s))
	c.printBoard(s)
}

func (c *Console) current(ctx context.Context) (*session.Session, bool) {
	if c.sessionID == "" {
		_ = c.say(errNoSession.Error())
		return nil, false
	}
	s, err := c.mgr.Get(ctx, c.sessionID)
	if err != nil {
		c.fail(err, board.NoCell, board.NoCell)
		if errors.Is(err, session.ErrSessionNotFound) {
			c.sessionID = ""
		}
		return nil, false
	}
	return s, true
}

func (c *Console) show(ctx context.Context) {
	if s, ok := c.current(ctx); ok {
		c.printBoard(s)
	}
}

func (c *Console) parseCells(args []string, n int) ([]board.Cell, bool) {
	if len(args) < n {
		_ = c.say(c.formatter.Help())
		return nil, false
	}
	cells := make([]board.Cell, 0, n)
	for _, a := range args[:n] {
		cell, err := board.ParseCell(a)
		if err != nil {
			_ = c.say(c.formatter.BadCell(a))
			return nil, false
		}
		cells = append(cells, cell)
	}
	return cells, true
}

func (c *Console) selectCell(ctx context.Context, args []string) {
	if c.sessionID == "" {
		_ = c.say(errNoSession.Error())
		return
	}
	cells, ok := c.parseCells(args, 1)
	if !ok {
		return
	}
	sel, err := c.mgr.Select(ctx, c.sessionID, cells[0])
	if err != nil {
		c.fail(err, cells[0], board.NoCell)
		return
	}
	_ = c.say(c.formatter.Selection(sel))
	c.show(ctx)
}

func (c *Console) deselect(ctx context.Context) {
	if c.sessionID == "" {
		_ = c.say(errNoSession.Error())
		return
	}
	if err := c.mgr.Deselect(ctx, c.sessionID); err != nil {
		c.fail(err, board.NoCell, board.NoCell)
		return
	}
	_ = c.say(c.formatter.Cleared())
}

func (c *Console) moves(ctx context.Context, args []string) {
	s, ok := c.current(ctx)
	if !ok {
		return
	}
	cells, ok := c.parseCells(args, 1)
	if !ok {
		return
	}
	p, occupied := s.Board.PieceAt(cells[0])
	if !occupied {
		c.fail(board.ErrEmptyCell, cells[0], board.NoCell)
		return
	}
	list, err := c.mgr.Generator().CandidateMoves(s.Board, cells[0])
	if err != nil {
		c.fail(err, cells[0], board.NoCell)
		return
	}
	_ = c.say(c.formatter.Selection(&session.Selection{Cell: cells[0], Piece: p, Candidates: list}))
}

// move accepts "move <from> <to>" or, with a selection, "move <to>".
func (c *Console) move(ctx context.Context, args []string) {
	s, ok := c.current(ctx)
	if !ok {
		return
	}
	if len(args) == 1 && s.Selected != nil {
		args = []string{s.Selected.String(), args[0]}
	}
	cells, ok := c.parseCells(args, 2)
	if !ok {
		return
	}
	rec, next, err := c.mgr.Move(ctx, c.sessionID, cells[0], cells[1])
	if err != nil {
		c.fail(err, cells[0], cells[1])
		return
	}
	_ = c.say(c.formatter.Move(rec))
	c.printBoard(next)
}

func (c *Console) fen(ctx context.Context) {
	if s, ok := c.current(ctx); ok {
		_ = c.say(notation.FEN(s.Board))
	}
}

func (c *Console) png(ctx context.Context, args []string) {
	s, ok := c.current(ctx)
	if !ok {
		return
	}
	if len(args) < 1 {
		_ = c.say(c.formatter.Help())
		return
	}
	path := args[0]
	data, err := c.renderer.Render(ctx, s.Board, c.highlight(s))
	if err != nil {
		c.fail(err, board.NoCell, board.NoCell)
		return
	}
	state := presenter.ToDTOState(s)
	state.BoardImage = data
	p := presenter.NewPresenter(c.say, func(png []byte) error { return c.writeFile(path, png) })
	if err := p.Board(fmt.Sprintf("wrote %s (%d bytes)", path, len(data)), state); err != nil {
		c.fail(err, board.NoCell, board.NoCell)
	}
}

func (c *Console) history(ctx context.Context) {
	s, ok := c.current(ctx)
	if !ok {
		return
	}
	if len(s.Moves) == 0 {
		_ = c.say("no moves yet")
		return
	}
	_ = c.say(archive.MoveText(s.Moves))
}

func (c *Console) end(ctx context.Context) {
	if c.sessionID == "" {
		_ = c.say(errNoSession.Error())
		return
	}
	s, err := c.mgr.End(ctx, c.sessionID)
	c.sessionID = ""
	if err != nil {
		c.fail(err, board.NoCell, board.NoCell)
		return
	}
	_ = c.say(c.formatter.Ended(s))
}

func (c *Console) highlight(s *session.Session) render.Highlight {
	h := render.Highlight{
		View:    c.view,
		Caption: s.Mover().Opponent().String() + " to move",
	}
	if s.Selected != nil {
		cell := *s.Selected
		h.Selected = &cell
		if list, err := c.mgr.Generator().CandidateMoves(s.Board, cell); err == nil {
			h.Candidates = list
		}
	}
	if n := len(s.Moves); n > 0 {
		h.LastMove = &render.Move{From: s.Moves[n-1].From, To: s.Moves[n-1].To}
	}
	return h
}

func (c *Console) printBoard(s *session.Session) {
	fmt.Fprint(c.out, render.Text(s.Board, c.highlight(s)))
}

func (c *Console) fail(err error, from, to board.Cell) {
	de := presenter.ToDomainError(err)
	if de.Code == boarddto.CodeInternal {
		obslog.L().Error("console_error", zap.String("session_id", c.sessionID), zap.Error(err))
	}
	_ = c.say(c.formatter.Failure(err, c.sessionID, from, to))
}
