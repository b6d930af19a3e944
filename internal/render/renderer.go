// Package render draws a board with a selection and its candidate
// destinations, and maps screen picks back to cells.
package render

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	imagedraw "image/draw"
	"image/png"
	"math"

	"github.com/park285/chessboard-core/internal/board"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

const DefaultSquareSize = 64

// Move is a from/to pair drawn as the last-move arrow.
type Move struct {
	From board.Cell
	To   board.Cell
}

// Highlight describes what to emphasise on top of the board.
type Highlight struct {
	Selected   *board.Cell
	Candidates []board.Cell
	LastMove   *Move
	// View picks the side drawn at the bottom. Dark rotates the board.
	View    board.Color
	Caption string
}

// Highlighter renders a board with a selected cell and its move list.
type Highlighter interface {
	Render(ctx context.Context, b *board.Board, h Highlight) ([]byte, error)
}

// Picker translates a screen pick into a board cell.
type Picker interface {
	CellAt(x, y int) (board.Cell, bool)
}

type PNGRenderer struct {
	squareSize int
}

func NewPNGRenderer(squareSize int) *PNGRenderer {
	if squareSize <= 0 {
		squareSize = DefaultSquareSize
	}
	return &PNGRenderer{squareSize: squareSize}
}

// Layout returns the pixel layout used when rendering from the given view.
func (r *PNGRenderer) Layout(view board.Color) Layout {
	return NewLayout(r.squareSize, view == board.Dark)
}

// Picker returns the inverse mapping for images rendered from view.
func (r *PNGRenderer) Picker(view board.Color) Picker {
	return r.Layout(view)
}

func (r *PNGRenderer) Render(ctx context.Context, b *board.Board, h Highlight) ([]byte, error) {
	if b == nil {
		return nil, fmt.Errorf("board is nil")
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	layout := r.Layout(h.View)
	size := layout.Size()
	img := image.NewRGBA(image.Rect(0, 0, size.X, size.Y))
	imagedraw.Draw(img, img.Bounds(), image.NewUniform(backgroundColor), image.Point{}, imagedraw.Src)

	drawSquares(img, layout)
	if h.LastMove != nil {
		drawSquareOverlay(img, layout, h.LastMove.From, lastMoveFill)
		drawSquareOverlay(img, layout, h.LastMove.To, lastMoveFill)
	}
	if h.Selected != nil && h.Selected.Valid() {
		drawSquareOverlay(img, layout, *h.Selected, selectedFill)
	}
	if err := drawPieces(img, b, layout); err != nil {
		return nil, err
	}
	drawCandidates(img, b, layout, h.Candidates)
	if h.LastMove != nil {
		drawArrow(img, layout, h.LastMove.From, h.LastMove.To, lastMoveArrow)
	}
	drawCoordinates(img, layout)
	drawCaption(img, layout, h.Caption)

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	var pngBuf bytes.Buffer
	if err := png.Encode(&pngBuf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return pngBuf.Bytes(), nil
}

var (
	lightSquare         = color.RGBA{233, 207, 163, 255}
	darkSquare          = color.RGBA{187, 136, 96, 255}
	backgroundColor     = color.RGBA{28, 31, 46, 255}
	selectedFill        = color.NRGBA{R: 255, G: 228, B: 120, A: 140}
	lastMoveFill        = color.NRGBA{R: 182, G: 184, B: 190, A: 110}
	lastMoveArrow       = color.NRGBA{R: 148, G: 207, B: 255, A: 170}
	candidateDot        = color.NRGBA{R: 20, G: 85, B: 30, A: 150}
	captureRing         = color.NRGBA{R: 200, G: 40, B: 40, A: 170}
	coordinateTextColor = color.NRGBA{R: 8, G: 214, B: 120, A: 255}
	captionTextColor    = color.NRGBA{R: 236, G: 239, B: 255, A: 255}
)

func squareColor(c board.Cell) color.RGBA {
	if (c.File+c.Rank)%2 == 0 {
		return darkSquare
	}
	return lightSquare
}

func drawSquares(img *image.RGBA, layout Layout) {
	for rank := 0; rank < board.Size; rank++ {
		for file := 0; file < board.Size; file++ {
			c := board.At(file, rank)
			imagedraw.Draw(img, layout.Rect(c), image.NewUniform(squareColor(c)), image.Point{}, imagedraw.Src)
		}
	}
}

func drawPieces(img *image.RGBA, b *board.Board, layout Layout) error {
	for _, pl := range b.Pieces() {
		pieceImg, err := renderPieceImage(pl.Piece, layout.SquareSize)
		if err != nil {
			return err
		}
		imagedraw.Draw(img, layout.Rect(pl.Cell), pieceImg, image.Point{}, imagedraw.Over)
	}
	return nil
}

func drawSquareOverlay(img *image.RGBA, layout Layout, c board.Cell, clr color.Color) {
	if !c.Valid() {
		return
	}
	imagedraw.Draw(img, layout.Rect(c), image.NewUniform(clr), image.Point{}, imagedraw.Over)
}

// drawCandidates marks empty destinations with a dot and occupied ones
// (captures) with a ring.
func drawCandidates(img *image.RGBA, b *board.Board, layout Layout, cells []board.Cell) {
	for _, c := range cells {
		if !c.Valid() {
			continue
		}
		center := layout.Center(c)
		if b.IsOccupied(c) {
			outer := layout.SquareSize / 2
			drawRing(img, center, outer, outer-layout.SquareSize/10, captureRing)
			continue
		}
		drawDisc(img, center, layout.SquareSize/6, candidateDot)
	}
}

func drawCoordinates(img *image.RGBA, layout Layout) {
	face := basicfont.Face7x13
	drawer := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(coordinateTextColor),
		Face: face,
	}
	ascent := face.Metrics().Ascent.Ceil()
	boardRect := layout.BoardRect()

	for i := 0; i < board.Size; i++ {
		fileCenter := layout.Center(board.At(i, 0)).X
		drawCenteredText(drawer, string(rune('a'+i)), fileCenter, boardRect.Max.Y+ascent+2)

		rankCenter := layout.Center(board.At(0, i)).Y
		drawCenteredText(drawer, string(rune('1'+i)), boardRect.Min.X-layout.Margin/2, rankCenter+ascent/2)
	}
}

func drawCaption(img *image.RGBA, layout Layout, text string) {
	if text == "" {
		return
	}
	face := basicfont.Face7x13
	drawer := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(captionTextColor),
		Face: face,
	}
	maxWidth := layout.BoardRect().Dx()
	text = truncateWithEllipsis(face, text, maxWidth)
	ascent := face.Metrics().Ascent.Ceil()
	drawer.Dot = fixed.P(layout.BoardRect().Min.X, layout.Margin/2+ascent/2)
	drawer.DrawString(text)
}

func truncateWithEllipsis(face font.Face, text string, maxWidth int) string {
	drawer := font.Drawer{Face: face}
	if drawer.MeasureString(text).Round() <= maxWidth {
		return text
	}
	runes := []rune(text)
	for len(runes) > 0 {
		runes = runes[:len(runes)-1]
		candidate := string(runes) + "..."
		if drawer.MeasureString(candidate).Round() <= maxWidth {
			return candidate
		}
	}
	return ""
}

func drawCenteredText(drawer *font.Drawer, text string, centerX, baseline int) {
	if text == "" {
		return
	}
	width := drawer.MeasureString(text).Round()
	drawer.Dot = fixed.P(centerX-width/2, baseline)
	drawer.DrawString(text)
}

func drawDisc(img *image.RGBA, center image.Point, radius int, clr color.Color) {
	drawRing(img, center, radius, -1, clr)
}

// drawRing blends every pixel whose distance from center lies in (inner, outer].
func drawRing(img *image.RGBA, center image.Point, outer, inner int, clr color.Color) {
	if outer <= 0 {
		blendPixel(img, center.X, center.Y, clr)
		return
	}
	outerSq := outer * outer
	innerSq := inner * inner
	if inner < 0 {
		innerSq = -1
	}
	for y := -outer; y <= outer; y++ {
		for x := -outer; x <= outer; x++ {
			d := x*x + y*y
			if d > outerSq || d <= innerSq {
				continue
			}
			blendPixel(img, center.X+x, center.Y+y, clr)
		}
	}
}

func blendPixel(img *image.RGBA, x, y int, clr color.Color) {
	if !(image.Point{X: x, Y: y}).In(img.Bounds()) {
		return
	}
	sr, sg, sb, sa := clr.RGBA()
	if sa == 0 {
		return
	}
	dst := img.RGBAAt(x, y)
	inv := 65535 - sa
	// premultiplied "over"
	img.SetRGBA(x, y, color.RGBA{
		R: uint8((sr + uint32(dst.R)*257*inv/65535) >> 8),
		G: uint8((sg + uint32(dst.G)*257*inv/65535) >> 8),
		B: uint8((sb + uint32(dst.B)*257*inv/65535) >> 8),
		A: uint8((sa + uint32(dst.A)*257*inv/65535) >> 8),
	})
}

func drawArrow(img *image.RGBA, layout Layout, from, to board.Cell, clr color.Color) {
	if from == to || !from.Valid() || !to.Valid() {
		return
	}
	start := layout.Center(from)
	end := layout.Center(to)
	squareSize := float64(layout.SquareSize)

	dx := float64(end.X - start.X)
	dy := float64(end.Y - start.Y)
	length := math.Hypot(dx, dy)
	if length == 0 {
		return
	}

	dirX := dx / length
	dirY := dy / length
	perpX := -dirY
	perpY := dirX

	baseLength := length - squareSize*0.45
	if baseLength < squareSize*0.35 {
		baseLength = length * 0.6
	}
	halfWidth := squareSize * 0.12
	headWidth := squareSize * 0.32

	baseX := float64(start.X) + dirX*baseLength
	baseY := float64(start.Y) + dirY*baseLength

	fillQuad(img,
		pointF{X: float64(start.X) - perpX*halfWidth, Y: float64(start.Y) - perpY*halfWidth},
		pointF{X: float64(start.X) + perpX*halfWidth, Y: float64(start.Y) + perpY*halfWidth},
		pointF{X: baseX + perpX*halfWidth, Y: baseY + perpY*halfWidth},
		pointF{X: baseX - perpX*halfWidth, Y: baseY - perpY*halfWidth},
		clr,
	)
	fillTriangleF(img,
		pointF{X: float64(end.X), Y: float64(end.Y)},
		pointF{X: baseX - perpX*headWidth/2, Y: baseY - perpY*headWidth/2},
		pointF{X: baseX + perpX*headWidth/2, Y: baseY + perpY*headWidth/2},
		clr,
	)
}

type pointF struct {
	X float64
	Y float64
}

func fillQuad(img *image.RGBA, p0, p1, p2, p3 pointF, clr color.Color) {
	fillTriangleF(img, p0, p1, p2, clr)
	fillTriangleF(img, p0, p2, p3, clr)
}

func fillTriangleF(img *image.RGBA, a, b, c pointF, clr color.Color) {
	minX := int(math.Floor(math.Min(a.X, math.Min(b.X, c.X))))
	maxX := int(math.Ceil(math.Max(a.X, math.Max(b.X, c.X))))
	minY := int(math.Floor(math.Min(a.Y, math.Min(b.Y, c.Y))))
	maxY := int(math.Ceil(math.Max(a.Y, math.Max(b.Y, c.Y))))

	for y := minY; y <= maxY; y++ {
		for x := minX; x <= maxX; x++ {
			if pointInTriangle(float64(x)+0.5, float64(y)+0.5, a, b, c) {
				blendPixel(img, x, y, clr)
			}
		}
	}
}

func pointInTriangle(x, y float64, a, b, c pointF) bool {
	denom := (b.Y-c.Y)*(a.X-c.X) + (c.X-b.X)*(a.Y-c.Y)
	if denom == 0 {
		return false
	}
	alpha := ((b.Y-c.Y)*(x-c.X) + (c.X-b.X)*(y-c.Y)) / denom
	beta := ((c.Y-a.Y)*(x-c.X) + (a.X-c.X)*(y-c.Y)) / denom
	gamma := 1 - alpha - beta
	return alpha >= 0 && beta >= 0 && gamma >= 0
}
