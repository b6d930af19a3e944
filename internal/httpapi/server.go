// Package httpapi exposes the board session operations over HTTP.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/park285/chessboard-core/internal/archive"
	"github.com/park285/chessboard-core/internal/board"
	"github.com/park285/chessboard-core/internal/obslog"
	"github.com/park285/chessboard-core/internal/presenter"
	"github.com/park285/chessboard-core/internal/render"
	"github.com/park285/chessboard-core/internal/session"
	"github.com/park285/chessboard-core/pkg/boarddto"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"
)

const (
	contentTypeJSON = "application/json"
	contentTypePNG  = "image/png"
	maxBodySize     = 64 << 10
)

// History lists archived sessions, newest first.
type History interface {
	Recent(ctx context.Context, limit int) ([]*archive.Record, error)
}

type Server struct {
	mgr      *session.Manager
	renderer *render.PNGRenderer
	history  History
	srv      *fasthttp.Server
}

type Option func(*Server)

// WithHistory enables GET /archive.
func WithHistory(h History) Option { return func(s *Server) { s.history = h } }

func New(mgr *session.Manager, renderer *render.PNGRenderer, opts ...Option) *Server {
	if renderer == nil {
		renderer = render.NewPNGRenderer(render.DefaultSquareSize)
	}
	s := &Server{mgr: mgr, renderer: renderer}
	for _, opt := range opts {
		opt(s)
	}
	s.srv = &fasthttp.Server{
		Handler:            s.Handler(),
		Name:               "chessboard-core",
		ReadTimeout:        10 * time.Second,
		WriteTimeout:       10 * time.Second,
		MaxRequestBodySize: maxBodySize,
	}
	return s
}

func (s *Server) ListenAndServe(addr string) error {
	obslog.L().Info("http_listen", zap.String("addr", addr))
	return s.srv.ListenAndServe(addr)
}

func (s *Server) Serve(ln net.Listener) error {
	return s.srv.Serve(ln)
}

// Shutdown stops accepting connections and waits for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.ShutdownWithContext(ctx)
}

// Handler routes requests. Paths:
//
//	POST   /sessions
//	GET    /sessions/{id}
//	DELETE /sessions/{id}
//	GET    /sessions/{id}/candidates?cell=e2
//	POST   /sessions/{id}/selection      {"cell":"e2"}
//	DELETE /sessions/{id}/selection
//	GET    /sessions/{id}/moves
//	POST   /sessions/{id}/moves          {"from":"e2","to":"e3"}
//	GET    /sessions/{id}/board.png?cell=e2&view=dark  (or ?x=100&y=40 to pick)
//	GET    /archive?limit=10
func (s *Server) Handler() fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		start := time.Now()
		s.route(ctx)
		obslog.L().Debug("http_request",
			zap.ByteString("method", ctx.Method()),
			zap.ByteString("path", ctx.Path()),
			zap.Int("status", ctx.Response.StatusCode()),
			zap.Duration("elapsed", time.Since(start)),
		)
	}
}

var subresources = map[string]bool{
	"candidates": true,
	"selection":  true,
	"moves":      true,
	"board.png":  true,
}

func (s *Server) route(ctx *fasthttp.RequestCtx) {
	path := strings.Trim(string(ctx.Path()), "/")
	parts := strings.Split(path, "/")
	method := string(ctx.Method())

	if path == "healthz" {
		ctx.SetStatusCode(fasthttp.StatusOK)
		ctx.SetBodyString("ok")
		return
	}
	if path == "archive" && method == fasthttp.MethodGet && s.history != nil {
		s.handleArchive(ctx)
		return
	}
	if parts[0] != "sessions" {
		writeError(ctx, fasthttp.StatusNotFound, boarddto.DomainError{Code: "NOT_FOUND", Message: "no such route"})
		return
	}

	switch {
	case len(parts) == 1 && method == fasthttp.MethodPost:
		s.handleStart(ctx)
	case len(parts) == 2 && method == fasthttp.MethodGet:
		s.handleState(ctx, parts[1])
	case len(parts) == 2 && method == fasthttp.MethodDelete:
		s.handleEnd(ctx, parts[1])
	case len(parts) == 3 && parts[2] == "candidates" && method == fasthttp.MethodGet:
		s.handleCandidates(ctx, parts[1])
	case len(parts) == 3 && parts[2] == "selection" && method == fasthttp.MethodPost:
		s.handleSelect(ctx, parts[1])
	case len(parts) == 3 && parts[2] == "selection" && method == fasthttp.MethodDelete:
		s.handleDeselect(ctx, parts[1])
	case len(parts) == 3 && parts[2] == "moves" && method == fasthttp.MethodGet:
		s.handleMoves(ctx, parts[1])
	case len(parts) == 3 && parts[2] == "moves" && method == fasthttp.MethodPost:
		s.handleMove(ctx, parts[1])
	case len(parts) == 3 && parts[2] == "board.png" && method == fasthttp.MethodGet:
		s.handleBoardPNG(ctx, parts[1])
	case len(parts) <= 2 || (len(parts) == 3 && subresources[parts[2]]):
		writeError(ctx, fasthttp.StatusMethodNotAllowed, boarddto.DomainError{Code: boarddto.CodeBadRequest, Message: "method not allowed"})
	default:
		writeError(ctx, fasthttp.StatusNotFound, boarddto.DomainError{Code: "NOT_FOUND", Message: "no such route"})
	}
}

func (s *Server) handleStart(ctx *fasthttp.RequestCtx) {
	sess, err := s.mgr.Start(ctx)
	if err != nil {
		writeDomainError(ctx, err)
		return
	}
	writeJSON(ctx, fasthttp.StatusCreated, presenter.ToDTOState(sess))
}

func (s *Server) handleState(ctx *fasthttp.RequestCtx, id string) {
	sess, err := s.mgr.Get(ctx, id)
	if err != nil {
		writeDomainError(ctx, err)
		return
	}
	writeJSON(ctx, fasthttp.StatusOK, presenter.ToDTOState(sess))
}

func (s *Server) handleEnd(ctx *fasthttp.RequestCtx, id string) {
	sess, err := s.mgr.End(ctx, id)
	if err != nil {
		writeDomainError(ctx, err)
		return
	}
	writeJSON(ctx, fasthttp.StatusOK, presenter.ToDTOState(sess))
}

func (s *Server) handleCandidates(ctx *fasthttp.RequestCtx, id string) {
	cell, ok := queryCell(ctx, "cell", true)
	if !ok {
		return
	}
	sess, err := s.mgr.Get(ctx, id)
	if err != nil {
		writeDomainError(ctx, err)
		return
	}
	p, occupied := sess.Board.PieceAt(cell)
	if !occupied {
		writeDomainError(ctx, board.ErrEmptyCell)
		return
	}
	list, err := s.mgr.Generator().CandidateMoves(sess.Board, cell)
	if err != nil {
		writeDomainError(ctx, err)
		return
	}
	writeJSON(ctx, fasthttp.StatusOK, presenter.ToDTOSelection(&session.Selection{Cell: cell, Piece: p, Candidates: list}))
}

type selectRequest struct {
	Cell string `json:"cell"`
}

func (s *Server) handleSelect(ctx *fasthttp.RequestCtx, id string) {
	var req selectRequest
	if !decodeBody(ctx, &req) {
		return
	}
	cell, err := board.ParseCell(req.Cell)
	if err != nil {
		writeError(ctx, fasthttp.StatusBadRequest, boarddto.DomainError{Code: boarddto.CodeBadRequest, Message: err.Error()})
		return
	}
	sel, err := s.mgr.Select(ctx, id, cell)
	if err != nil {
		writeDomainError(ctx, err)
		return
	}
	writeJSON(ctx, fasthttp.StatusOK, presenter.ToDTOSelection(sel))
}

func (s *Server) handleDeselect(ctx *fasthttp.RequestCtx, id string) {
	if err := s.mgr.Deselect(ctx, id); err != nil {
		writeDomainError(ctx, err)
		return
	}
	ctx.SetStatusCode(fasthttp.StatusNoContent)
}

func (s *Server) handleMoves(ctx *fasthttp.RequestCtx, id string) {
	sess, err := s.mgr.Get(ctx, id)
	if err != nil {
		writeDomainError(ctx, err)
		return
	}
	writeJSON(ctx, fasthttp.StatusOK, presenter.ToDTOState(sess).Moves)
}

func (s *Server) handleMove(ctx *fasthttp.RequestCtx, id string) {
	var req boarddto.MoveRequest
	if !decodeBody(ctx, &req) {
		return
	}
	from, err := board.ParseCell(req.From)
	if err != nil {
		writeError(ctx, fasthttp.StatusBadRequest, boarddto.DomainError{Code: boarddto.CodeBadRequest, Message: err.Error()})
		return
	}
	to, err := board.ParseCell(req.To)
	if err != nil {
		writeError(ctx, fasthttp.StatusBadRequest, boarddto.DomainError{Code: boarddto.CodeBadRequest, Message: err.Error()})
		return
	}
	rec, sess, err := s.mgr.Move(ctx, id, from, to)
	if err != nil {
		writeDomainError(ctx, err)
		return
	}
	writeJSON(ctx, fasthttp.StatusOK, boarddto.MoveSummary{
		Move:  presenter.ToDTOMove(*rec),
		State: presenter.ToDTOState(sess),
	})
}

// handleBoardPNG renders the board. The highlighted cell is ?cell= when
// given, else the square under the ?x=&y= pick in image pixels, else the
// session's current selection.
func (s *Server) handleBoardPNG(ctx *fasthttp.RequestCtx, id string) {
	h := render.Highlight{}
	if v := strings.ToLower(string(ctx.QueryArgs().Peek("view"))); v != "" {
		var view board.Color
		if err := view.UnmarshalText([]byte(v)); err != nil {
			writeError(ctx, fasthttp.StatusBadRequest, boarddto.DomainError{Code: boarddto.CodeBadRequest, Message: err.Error()})
			return
		}
		h.View = view
	}
	cell, ok := queryCell(ctx, "cell", false)
	if !ok {
		return
	}
	if !cell.Valid() {
		if cell, ok = queryPick(ctx, s.renderer.Picker(h.View)); !ok {
			return
		}
	}
	sess, err := s.mgr.Get(ctx, id)
	if err != nil {
		writeDomainError(ctx, err)
		return
	}
	if !cell.Valid() && sess.Selected != nil {
		cell = *sess.Selected
	}
	if cell.Valid() {
		list, err := s.mgr.Generator().CandidateMoves(sess.Board, cell)
		if err != nil {
			writeDomainError(ctx, err)
			return
		}
		c := cell
		h.Selected = &c
		h.Candidates = list
	}
	if n := len(sess.Moves); n > 0 {
		last := sess.Moves[n-1]
		h.LastMove = &render.Move{From: last.From, To: last.To}
	}
	png, err := s.renderer.Render(ctx, sess.Board, h)
	if err != nil {
		writeDomainError(ctx, err)
		return
	}
	ctx.SetStatusCode(fasthttp.StatusOK)
	ctx.SetContentType(contentTypePNG)
	ctx.SetBody(png)
}

func (s *Server) handleArchive(ctx *fasthttp.RequestCtx) {
	limit := 10
	if raw := string(ctx.QueryArgs().Peek("limit")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > 100 {
			writeError(ctx, fasthttp.StatusBadRequest, boarddto.DomainError{Code: boarddto.CodeBadRequest, Message: "limit must be between 1 and 100"})
			return
		}
		limit = n
	}
	list, err := s.history.Recent(ctx, limit)
	if err != nil {
		writeDomainError(ctx, err)
		return
	}
	writeJSON(ctx, fasthttp.StatusOK, presenter.ToDTOArchived(list))
}

// queryCell parses the named query argument. A missing optional argument
// yields board.NoCell and true; on failure the error response is written
// and false returned.
func queryCell(ctx *fasthttp.RequestCtx, name string, required bool) (board.Cell, bool) {
	raw := strings.TrimSpace(string(ctx.QueryArgs().Peek(name)))
	if raw == "" {
		if required {
			writeError(ctx, fasthttp.StatusBadRequest, boarddto.DomainError{Code: boarddto.CodeBadRequest, Message: name + " is required"})
			return board.NoCell, false
		}
		return board.NoCell, true
	}
	cell, err := board.ParseCell(raw)
	if err != nil {
		writeError(ctx, fasthttp.StatusBadRequest, boarddto.DomainError{Code: boarddto.CodeBadRequest, Message: err.Error()})
		return board.NoCell, false
	}
	return cell, true
}

// queryPick maps the ?x=&y= pixel pick through picker. Both absent yields
// board.NoCell and true.
func queryPick(ctx *fasthttp.RequestCtx, picker render.Picker) (board.Cell, bool) {
	rawX := strings.TrimSpace(string(ctx.QueryArgs().Peek("x")))
	rawY := strings.TrimSpace(string(ctx.QueryArgs().Peek("y")))
	if rawX == "" && rawY == "" {
		return board.NoCell, true
	}
	x, errX := strconv.Atoi(rawX)
	y, errY := strconv.Atoi(rawY)
	if errX != nil || errY != nil {
		writeError(ctx, fasthttp.StatusBadRequest, boarddto.DomainError{Code: boarddto.CodeBadRequest, Message: "x and y must both be integers"})
		return board.NoCell, false
	}
	cell, ok := picker.CellAt(x, y)
	if !ok {
		writeError(ctx, fasthttp.StatusBadRequest, boarddto.DomainError{Code: boarddto.CodeBadRequest, Message: "pick is outside the board"})
		return board.NoCell, false
	}
	return cell, true
}

func decodeBody(ctx *fasthttp.RequestCtx, v any) bool {
	if err := json.Unmarshal(ctx.PostBody(), v); err != nil {
		writeError(ctx, fasthttp.StatusBadRequest, boarddto.DomainError{Code: boarddto.CodeBadRequest, Message: "invalid json body: " + err.Error()})
		return false
	}
	return true
}

// StatusFor maps a domain error code to its HTTP status.
func StatusFor(code string) int {
	switch code {
	case boarddto.CodeSessionNotFound:
		return fasthttp.StatusNotFound
	case boarddto.CodeBadRequest:
		return fasthttp.StatusBadRequest
	case boarddto.CodeEmptyCell, boarddto.CodeInvalidMove, boarddto.CodeIllegalDestination, boarddto.CodeSessionEnded:
		return fasthttp.StatusUnprocessableEntity
	case boarddto.CodeConflict:
		return fasthttp.StatusConflict
	default:
		return fasthttp.StatusInternalServerError
	}
}

func writeDomainError(ctx *fasthttp.RequestCtx, err error) {
	de := presenter.ToDomainError(err)
	status := StatusFor(de.Code)
	if status == fasthttp.StatusInternalServerError && !errors.Is(err, context.Canceled) {
		obslog.L().Error("http_internal_error", zap.ByteString("path", ctx.Path()), zap.Error(err))
	}
	writeError(ctx, status, de)
}

func writeError(ctx *fasthttp.RequestCtx, status int, de boarddto.DomainError) {
	writeJSON(ctx, status, de)
}

func writeJSON(ctx *fasthttp.RequestCtx, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		obslog.L().Error("http_encode_error", zap.Error(err))
		ctx.Error("encode response", fasthttp.StatusInternalServerError)
		return
	}
	ctx.SetStatusCode(status)
	ctx.SetContentType(contentTypeJSON)
	ctx.SetBody(body)
}
