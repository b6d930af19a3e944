package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/park285/chessboard-core/internal/apiclient"
)

// boardcheck plays a short scripted game against a running chessboard-api.
func main() {
	baseURL := os.Getenv("BOARD_API_URL")
	if baseURL == "" {
		log.Fatal("BOARD_API_URL is required")
	}
	client := apiclient.NewClient(baseURL, apiclient.WithTimeout(8*time.Second))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	st, err := client.Start(ctx)
	if err != nil {
		log.Fatalf("start error: %v", err)
	}
	log.Printf("start ok: id=%s fen=%s", st.SessionID, st.FEN)
	defer func() {
		if _, err := client.End(ctx, st.SessionID); err != nil {
			log.Printf("end error: %v", err)
			return
		}
		log.Printf("end ok")
	}()

	sel, err := client.Candidates(ctx, st.SessionID, "b1")
	if err != nil {
		log.Printf("candidates error: %v", err)
		return
	}
	log.Printf("candidates ok: %s -> %v", sel.Cell, sel.Targets)

	sum, err := client.Move(ctx, st.SessionID, "b1", "c3")
	if err != nil {
		log.Printf("move error: %v", err)
		return
	}
	log.Printf("move ok: %s fen=%s", sum.Move.Notation, sum.State.FEN)

	img, err := client.BoardPNG(ctx, st.SessionID, "c3", "")
	if err != nil {
		log.Printf("board.png error: %v", err)
		return
	}
	log.Printf("board.png ok: %d bytes", len(img))
}
