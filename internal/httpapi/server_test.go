package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image/png"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/park285/chessboard-core/internal/archive"
	"github.com/park285/chessboard-core/internal/board"
	"github.com/park285/chessboard-core/internal/render"
	"github.com/park285/chessboard-core/internal/session"
	"github.com/park285/chessboard-core/pkg/boarddto"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttputil"
)

type testAPI struct {
	t      *testing.T
	client *fasthttp.Client
}

func newTestAPI(t *testing.T, opts ...Option) *testAPI {
	t.Helper()
	ln := fasthttputil.NewInmemoryListener()
	srv := New(session.NewManager(session.NewMemoryStore(), nil), render.NewPNGRenderer(32), opts...)
	go func() { _ = srv.Serve(ln) }()
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })
	return &testAPI{
		t:      t,
		client: &fasthttp.Client{Dial: func(string) (net.Conn, error) { return ln.Dial() }},
	}
}

func (a *testAPI) do(method, path string, body any) (int, []byte, string) {
	a.t.Helper()
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.Header.SetMethod(method)
	req.SetRequestURI("http://board.test" + path)
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			a.t.Fatalf("marshal: %v", err)
		}
		req.Header.SetContentType("application/json")
		req.SetBody(raw)
	}
	if err := a.client.Do(req, resp); err != nil {
		a.t.Fatalf("%s %s: %v", method, path, err)
	}
	return resp.StatusCode(), append([]byte(nil), resp.Body()...), string(resp.Header.ContentType())
}

func (a *testAPI) decode(raw []byte, v any) {
	a.t.Helper()
	if err := json.Unmarshal(raw, v); err != nil {
		a.t.Fatalf("decode %s: %v", raw, err)
	}
}

func (a *testAPI) start() boarddto.SessionState {
	a.t.Helper()
	status, body, _ := a.do(fasthttp.MethodPost, "/sessions", nil)
	if status != fasthttp.StatusCreated {
		a.t.Fatalf("start status = %d body=%s", status, body)
	}
	var st boarddto.SessionState
	a.decode(body, &st)
	return st
}

func (a *testAPI) expectError(method, path string, body any, status int, code string) {
	a.t.Helper()
	got, raw, _ := a.do(method, path, body)
	if got != status {
		a.t.Fatalf("%s %s status = %d, want %d (%s)", method, path, got, status, raw)
	}
	var de boarddto.DomainError
	a.decode(raw, &de)
	if de.Code != code {
		a.t.Fatalf("%s %s code = %s, want %s", method, path, de.Code, code)
	}
}

func TestStartAndState(t *testing.T) {
	api := newTestAPI(t)
	st := api.start()
	if st.SessionID == "" || st.Status != "ACTIVE" || st.ToMove != "light" {
		t.Fatalf("state = %+v", st)
	}
	if st.FEN != "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR" || len(st.Pieces) != 32 {
		t.Fatalf("fen=%s pieces=%d", st.FEN, len(st.Pieces))
	}

	status, body, ctype := api.do(fasthttp.MethodGet, "/sessions/"+st.SessionID, nil)
	if status != fasthttp.StatusOK || !strings.HasPrefix(ctype, "application/json") {
		t.Fatalf("get status=%d ctype=%s", status, ctype)
	}
	var again boarddto.SessionState
	api.decode(body, &again)
	if again.SessionID != st.SessionID || again.MoveCount != 0 {
		t.Fatalf("state = %+v", again)
	}
}

func TestCandidatesAndMove(t *testing.T) {
	api := newTestAPI(t)
	id := api.start().SessionID

	status, body, _ := api.do(fasthttp.MethodGet, "/sessions/"+id+"/candidates?cell=b1", nil)
	if status != fasthttp.StatusOK {
		t.Fatalf("candidates status = %d %s", status, body)
	}
	var sel boarddto.SelectionDTO
	api.decode(body, &sel)
	if sel.Piece != "light knight" || strings.Join(sel.Targets, ",") != "a3,c3" {
		t.Fatalf("selection = %+v", sel)
	}

	status, body, _ = api.do(fasthttp.MethodPost, "/sessions/"+id+"/moves", boarddto.MoveRequest{From: "b1", To: "c3"})
	if status != fasthttp.StatusOK {
		t.Fatalf("move status = %d %s", status, body)
	}
	var sum boarddto.MoveSummary
	api.decode(body, &sum)
	if sum.Move.Notation != "Nb1-c3" || sum.State.MoveCount != 1 || sum.State.ToMove != "dark" {
		t.Fatalf("summary = %+v", sum)
	}

	status, body, _ = api.do(fasthttp.MethodGet, "/sessions/"+id+"/moves", nil)
	var moves []boarddto.MoveDTO
	api.decode(body, &moves)
	if status != fasthttp.StatusOK || len(moves) != 1 || moves[0].From != "b1" {
		t.Fatalf("moves = %d %+v", status, moves)
	}
}

func TestMoveErrors(t *testing.T) {
	api := newTestAPI(t)
	id := api.start().SessionID
	moves := "/sessions/" + id + "/moves"

	api.expectError(fasthttp.MethodPost, moves, boarddto.MoveRequest{From: "e4", To: "e5"}, fasthttp.StatusUnprocessableEntity, boarddto.CodeInvalidMove)
	api.expectError(fasthttp.MethodPost, moves, boarddto.MoveRequest{From: "b1", To: "b3"}, fasthttp.StatusUnprocessableEntity, boarddto.CodeIllegalDestination)
	api.expectError(fasthttp.MethodPost, moves, boarddto.MoveRequest{From: "z9", To: "b3"}, fasthttp.StatusBadRequest, boarddto.CodeBadRequest)
	api.expectError(fasthttp.MethodPost, moves, "not an object", fasthttp.StatusBadRequest, boarddto.CodeBadRequest)
	api.expectError(fasthttp.MethodGet, "/sessions/"+id+"/candidates?cell=e4", nil, fasthttp.StatusUnprocessableEntity, boarddto.CodeEmptyCell)
	api.expectError(fasthttp.MethodGet, "/sessions/"+id+"/candidates", nil, fasthttp.StatusBadRequest, boarddto.CodeBadRequest)
	api.expectError(fasthttp.MethodGet, "/sessions/missing", nil, fasthttp.StatusNotFound, boarddto.CodeSessionNotFound)
	api.expectError(fasthttp.MethodPost, "/sessions/missing/moves", boarddto.MoveRequest{From: "b1", To: "c3"}, fasthttp.StatusNotFound, boarddto.CodeSessionNotFound)
}

func TestSelectionLifecycle(t *testing.T) {
	api := newTestAPI(t)
	id := api.start().SessionID
	base := "/sessions/" + id

	status, body, _ := api.do(fasthttp.MethodPost, base+"/selection", map[string]string{"cell": "g1"})
	if status != fasthttp.StatusOK {
		t.Fatalf("select = %d %s", status, body)
	}
	var sel boarddto.SelectionDTO
	api.decode(body, &sel)
	if strings.Join(sel.Targets, ",") != "f3,h3" {
		t.Fatalf("targets = %v", sel.Targets)
	}

	_, body, _ = api.do(fasthttp.MethodGet, base, nil)
	var st boarddto.SessionState
	api.decode(body, &st)
	if st.Selected != "g1" {
		t.Fatalf("selected = %q", st.Selected)
	}

	api.expectError(fasthttp.MethodPost, base+"/selection", map[string]string{"cell": "e5"}, fasthttp.StatusUnprocessableEntity, boarddto.CodeEmptyCell)

	if status, _, _ := api.do(fasthttp.MethodDelete, base+"/selection", nil); status != fasthttp.StatusNoContent {
		t.Fatalf("deselect = %d", status)
	}
	_, body, _ = api.do(fasthttp.MethodGet, base, nil)
	st = boarddto.SessionState{}
	api.decode(body, &st)
	if st.Selected != "" {
		t.Fatalf("selection not cleared: %q", st.Selected)
	}
}

func TestBoardPNG(t *testing.T) {
	api := newTestAPI(t)
	id := api.start().SessionID

	for _, path := range []string{
		"/sessions/" + id + "/board.png",
		"/sessions/" + id + "/board.png?cell=e2",
		"/sessions/" + id + "/board.png?cell=b8&view=dark",
	} {
		status, body, ctype := api.do(fasthttp.MethodGet, path, nil)
		if status != fasthttp.StatusOK || ctype != "image/png" {
			t.Fatalf("%s: status=%d ctype=%s", path, status, ctype)
		}
		img, err := png.Decode(bytes.NewReader(body))
		if err != nil {
			t.Fatalf("%s: decode: %v", path, err)
		}
		if want := render.NewLayout(32, false).Size(); img.Bounds().Size() != want {
			t.Fatalf("%s: size = %v, want %v", path, img.Bounds().Size(), want)
		}
	}
	api.expectError(fasthttp.MethodGet, "/sessions/"+id+"/board.png?view=sideways", nil, fasthttp.StatusBadRequest, boarddto.CodeBadRequest)
	api.expectError(fasthttp.MethodGet, "/sessions/"+id+"/board.png?cell=d5", nil, fasthttp.StatusUnprocessableEntity, boarddto.CodeEmptyCell)
}

func TestBoardPNGPick(t *testing.T) {
	api := newTestAPI(t)
	id := api.start().SessionID
	base := "/sessions/" + id + "/board.png"

	for _, view := range []string{"light", "dark"} {
		at := render.NewLayout(32, view == "dark").Center(board.MustCell("e2"))
		_, want, _ := api.do(fasthttp.MethodGet, base+"?cell=e2&view="+view, nil)
		status, got, _ := api.do(fasthttp.MethodGet, fmt.Sprintf("%s?x=%d&y=%d&view=%s", base, at.X, at.Y, view), nil)
		if status != fasthttp.StatusOK || !bytes.Equal(got, want) {
			t.Fatalf("%s pick at %v: status=%d, image differs from ?cell=e2", view, at, status)
		}
	}

	empty := render.NewLayout(32, false).Center(board.MustCell("d5"))
	api.expectError(fasthttp.MethodGet, fmt.Sprintf("%s?x=%d&y=%d", base, empty.X, empty.Y), nil, fasthttp.StatusUnprocessableEntity, boarddto.CodeEmptyCell)
	api.expectError(fasthttp.MethodGet, base+"?x=1&y=1", nil, fasthttp.StatusBadRequest, boarddto.CodeBadRequest)
	api.expectError(fasthttp.MethodGet, base+"?x=40", nil, fasthttp.StatusBadRequest, boarddto.CodeBadRequest)
}

func TestEndSession(t *testing.T) {
	api := newTestAPI(t)
	id := api.start().SessionID

	status, body, _ := api.do(fasthttp.MethodDelete, "/sessions/"+id, nil)
	if status != fasthttp.StatusOK {
		t.Fatalf("end = %d %s", status, body)
	}
	var st boarddto.SessionState
	api.decode(body, &st)
	if st.Status != "ENDED" {
		t.Fatalf("status = %s", st.Status)
	}
	api.expectError(fasthttp.MethodGet, "/sessions/"+id, nil, fasthttp.StatusNotFound, boarddto.CodeSessionNotFound)
}

func TestRouting(t *testing.T) {
	api := newTestAPI(t)
	if status, body, _ := api.do(fasthttp.MethodGet, "/healthz", nil); status != fasthttp.StatusOK || string(body) != "ok" {
		t.Fatalf("healthz = %d %s", status, body)
	}
	api.expectError(fasthttp.MethodPut, "/sessions", nil, fasthttp.StatusMethodNotAllowed, boarddto.CodeBadRequest)
	api.expectError(fasthttp.MethodGet, "/sessions/x/unknown", nil, fasthttp.StatusNotFound, "NOT_FOUND")
	api.expectError(fasthttp.MethodGet, "/other", nil, fasthttp.StatusNotFound, "NOT_FOUND")
}

func TestStatusFor(t *testing.T) {
	cases := map[string]int{
		boarddto.CodeSessionNotFound:    404,
		boarddto.CodeBadRequest:         400,
		boarddto.CodeEmptyCell:          422,
		boarddto.CodeInvalidMove:        422,
		boarddto.CodeIllegalDestination: 422,
		boarddto.CodeSessionEnded:       422,
		boarddto.CodeConflict:           409,
		boarddto.CodeInternal:           500,
	}
	for code, want := range cases {
		if got := StatusFor(code); got != want {
			t.Fatalf("StatusFor(%s) = %d, want %d", code, got, want)
		}
	}
}

type fakeHistory struct {
	limit int
	list  []*archive.Record
}

func (f *fakeHistory) Recent(_ context.Context, limit int) ([]*archive.Record, error) {
	f.limit = limit
	return f.list, nil
}

func TestArchive(t *testing.T) {
	api := newTestAPI(t)
	api.expectError(fasthttp.MethodGet, "/archive", nil, fasthttp.StatusNotFound, "NOT_FOUND")

	h := &fakeHistory{list: []*archive.Record{{SessionID: "old", MoveText: "1. Nb1-c3", MoveCount: 1, Duration: 2 * time.Second}}}
	api = newTestAPI(t, WithHistory(h))
	status, body, _ := api.do(fasthttp.MethodGet, "/archive?limit=5", nil)
	if status != fasthttp.StatusOK || h.limit != 5 {
		t.Fatalf("archive = %d limit=%d", status, h.limit)
	}
	var games []boarddto.ArchivedGame
	api.decode(body, &games)
	if len(games) != 1 || games[0].SessionID != "old" || games[0].DurationMS != 2000 {
		t.Fatalf("games = %+v", games)
	}
	api.expectError(fasthttp.MethodGet, "/archive?limit=0", nil, fasthttp.StatusBadRequest, boarddto.CodeBadRequest)
}
