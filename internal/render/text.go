package render

import (
	"strings"

	"github.com/park285/chessboard-core/internal/board"
)

// Text draws the board as an ASCII diagram. The selected cell is wrapped in
// parentheses, capture candidates in brackets and empty candidates show '*'.
func Text(b *board.Board, h Highlight) string {
	candidates := make(map[board.Cell]bool, len(h.Candidates))
	for _, c := range h.Candidates {
		candidates[c] = true
	}
	layout := NewLayout(1, h.View == board.Dark)

	var sb strings.Builder
	for row := 0; row < board.Size; row++ {
		rank := layout.cellFor(0, row).Rank
		sb.WriteByte(byte('1' + rank))
		sb.WriteByte(' ')
		for col := 0; col < board.Size; col++ {
			c := layout.cellFor(col, row)
			sym := byte('.')
			p, occupied := b.PieceAt(c)
			if occupied {
				sym = p.Symbol()
			}
			switch {
			case h.Selected != nil && *h.Selected == c:
				sb.WriteByte('(')
				sb.WriteByte(sym)
				sb.WriteByte(')')
			case candidates[c] && occupied:
				sb.WriteByte('[')
				sb.WriteByte(sym)
				sb.WriteByte(']')
			case candidates[c]:
				sb.WriteString(" * ")
			default:
				sb.WriteByte(' ')
				sb.WriteByte(sym)
				sb.WriteByte(' ')
			}
		}
		sb.WriteByte('\n')
	}
	sb.WriteString("  ")
	for col := 0; col < board.Size; col++ {
		sb.WriteByte(' ')
		sb.WriteByte(byte('a' + layout.cellFor(col, 0).File))
		sb.WriteByte(' ')
	}
	sb.WriteByte('\n')
	if h.Caption != "" {
		sb.WriteString(h.Caption)
		sb.WriteByte('\n')
	}
	return sb.String()
}
