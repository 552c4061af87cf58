package grid

import "image"

// Layout places equally sized cells on a canvas in row-major order.
type Layout struct {
	Count      int
	Columns    int
	Rows       int
	CellWidth  int
	CellHeight int
}

// NewLayout computes the layout of count cells in the given number of
// columns. Fewer than one column is treated as one.
func NewLayout(count, columns, cellWidth, cellHeight int) Layout {
	if columns < 1 {
		columns = 1
	}
	return Layout{
		Count:      count,
		Columns:    columns,
		Rows:       (count + columns - 1) / columns,
		CellWidth:  cellWidth,
		CellHeight: cellHeight,
	}
}

// Cell returns the top-left pixel offset of cell i
func (l Layout) Cell(i int) image.Point {
	row, col := i/l.Columns, i%l.Columns
	return image.Pt(col*l.CellWidth, row*l.CellHeight)
}

// Bounds returns the canvas rectangle
func (l Layout) Bounds() image.Rectangle {
	return image.Rect(0, 0, l.Columns*l.CellWidth, l.Rows*l.CellHeight)
}
