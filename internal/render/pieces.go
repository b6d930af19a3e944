package render

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"strings"
	"sync"

	"github.com/park285/chessboard-core/internal/board"
	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"
)

// Piece silhouettes on a 45x45 canvas. %[1]s is the fill, %[2]s the stroke.
var pieceShapes = map[board.PieceKind][]string{
	board.Pawn: {
		`<circle cx="22.5" cy="14" r="6" fill="%[1]s" stroke="%[2]s" stroke-width="1.5"/>`,
		`<path d="M 14 37 L 31 37 L 27 21 L 18 21 Z" fill="%[1]s" stroke="%[2]s" stroke-width="1.5"/>`,
		`<rect x="11" y="36" width="23" height="4" fill="%[1]s" stroke="%[2]s" stroke-width="1.5"/>`,
	},
	board.Rook: {
		`<path d="M 11 39 L 34 39 L 34 34 L 30 34 L 29 17 L 32 17 L 32 10 L 28 10 L 28 13 L 24.5 13 L 24.5 10 L 20.5 10 L 20.5 13 L 17 13 L 17 10 L 13 10 L 13 17 L 16 17 L 15 34 L 11 34 Z" fill="%[1]s" stroke="%[2]s" stroke-width="1.5"/>`,
	},
	board.Knight: {
		`<path d="M 12 39 L 34 39 L 32 30 C 31 22 30 14 22 10 L 20 6 L 18 11 C 14 13 10 19 10 23 L 14 26 L 19 21 L 16 30 Z" fill="%[1]s" stroke="%[2]s" stroke-width="1.5"/>`,
		`<circle cx="17" cy="15" r="1.2" fill="%[2]s"/>`,
	},
	board.Bishop: {
		`<circle cx="22.5" cy="8.5" r="2.5" fill="%[1]s" stroke="%[2]s" stroke-width="1.5"/>`,
		`<path d="M 22.5 11 C 15 15 14 24 17 31 L 28 31 C 31 24 30 15 22.5 11 Z" fill="%[1]s" stroke="%[2]s" stroke-width="1.5"/>`,
		`<path d="M 11 39 L 34 39 L 32 32 L 13 32 Z" fill="%[1]s" stroke="%[2]s" stroke-width="1.5"/>`,
	},
	board.Queen: {
		`<path d="M 9 14 L 14 31 L 31 31 L 36 14 L 28 25 L 22.5 11 L 17 25 Z" fill="%[1]s" stroke="%[2]s" stroke-width="1.5"/>`,
		`<circle cx="9" cy="13" r="2.5" fill="%[1]s" stroke="%[2]s" stroke-width="1.5"/>`,
		`<circle cx="22.5" cy="9" r="2.5" fill="%[1]s" stroke="%[2]s" stroke-width="1.5"/>`,
		`<circle cx="36" cy="13" r="2.5" fill="%[1]s" stroke="%[2]s" stroke-width="1.5"/>`,
		`<path d="M 12 39 L 33 39 L 31 32 L 14 32 Z" fill="%[1]s" stroke="%[2]s" stroke-width="1.5"/>`,
	},
	board.King: {
		`<path d="M 21 4 L 24 4 L 24 7 L 27 7 L 27 10 L 24 10 L 24 14 L 21 14 L 21 10 L 18 10 L 18 7 L 21 7 Z" fill="%[1]s" stroke="%[2]s" stroke-width="1.2"/>`,
		`<path d="M 22.5 15 C 14 15 9 20 12 28 L 14 31 L 31 31 L 33 28 C 36 20 31 15 22.5 15 Z" fill="%[1]s" stroke="%[2]s" stroke-width="1.5"/>`,
		`<path d="M 12 39 L 33 39 L 31 32 L 14 32 Z" fill="%[1]s" stroke="%[2]s" stroke-width="1.5"/>`,
	},
}

func pieceSVG(p board.Piece) string {
	fill, stroke := "#ffffff", "#000000"
	if p.Color == board.Dark {
		fill, stroke = "#1e1e1e", "#000000"
	}
	var sb strings.Builder
	sb.WriteString(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 45 45" width="45" height="45">`)
	for _, shape := range pieceShapes[p.Kind] {
		fmt.Fprintf(&sb, shape, fill, stroke)
	}
	sb.WriteString(`</svg>`)
	return sb.String()
}

type pieceCacheKey struct {
	kind  board.PieceKind
	color board.Color
	size  int
}

var (
	pieceCache   = map[pieceCacheKey]image.Image{}
	pieceCacheMu sync.RWMutex
)

func renderPieceImage(p board.Piece, size int) (image.Image, error) {
	key := pieceCacheKey{kind: p.Kind, color: p.Color, size: size}

	pieceCacheMu.RLock()
	if img, ok := pieceCache[key]; ok {
		pieceCacheMu.RUnlock()
		return img, nil
	}
	pieceCacheMu.RUnlock()

	icon, err := oksvg.ReadIconStream(strings.NewReader(pieceSVG(p)))
	if err != nil {
		return nil, fmt.Errorf("parse %s svg: %w", p, err)
	}
	icon.SetTarget(0, 0, float64(size), float64(size))

	img := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.Transparent), image.Point{}, draw.Src)
	scanner := rasterx.NewScannerGV(size, size, img, img.Bounds())
	raster := rasterx.NewDasher(size, size, scanner)
	icon.Draw(raster, 1.0)

	pieceCacheMu.Lock()
	pieceCache[key] = img
	pieceCacheMu.Unlock()
	return img, nil
}
