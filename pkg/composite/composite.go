// Package composite tiles frames into a single grid canvas.
package composite

import (
	"errors"
	"fmt"
	"image"

	"gocv.io/x/gocv"
)

// ErrGridOverflow is returned when there are more frames than grid cells.
var ErrGridOverflow = errors.New("composite: more frames than grid cells")

// Layout describes a rows x cols grid of equal cells.
type Layout struct {
	Rows       int `yaml:"rows" json:"rows"`
	Cols       int `yaml:"cols" json:"cols"`
	CellWidth  int `yaml:"cell_width" json:"cell_width"`
	CellHeight int `yaml:"cell_height" json:"cell_height"`
}

// LayoutForWindow splits a window into a rows x cols grid.
// Cell size is truncated, so the canvas may be a few pixels smaller than the window.
func LayoutForWindow(width, height, rows, cols int) Layout {
	l := Layout{Rows: rows, Cols: cols}
	if rows > 0 && cols > 0 {
		l.CellWidth = width / cols
		l.CellHeight = height / rows
	}
	return l
}

// Validate checks that every dimension is positive.
func (l Layout) Validate() error {
	if l.Rows <= 0 || l.Cols <= 0 {
		return fmt.Errorf("grid must have positive rows and cols, got %dx%d", l.Rows, l.Cols)
	}
	if l.CellWidth <= 0 || l.CellHeight <= 0 {
		return fmt.Errorf("cell size must be positive, got %dx%d", l.CellWidth, l.CellHeight)
	}
	return nil
}

// Capacity returns the number of cells.
func (l Layout) Capacity() int {
	return l.Rows * l.Cols
}

// Width returns the canvas width in pixels.
func (l Layout) Width() int {
	return l.Cols * l.CellWidth
}

// Height returns the canvas height in pixels.
func (l Layout) Height() int {
	return l.Rows * l.CellHeight
}

// Position returns the (row, col) of the i-th cell, left-to-right, top-to-bottom.
func (l Layout) Position(i int) (row, col int) {
	return i / l.Cols, i % l.Cols
}

// Cell returns the canvas rectangle of the i-th cell.
func (l Layout) Cell(i int) image.Rectangle {
	row, col := l.Position(i)
	x, y := col*l.CellWidth, row*l.CellHeight
	return image.Rect(x, y, x+l.CellWidth, y+l.CellHeight)
}

// CheckFits returns ErrGridOverflow if n frames do not fit the grid.
func (l Layout) CheckFits(n int) error {
	if n > l.Capacity() {
		return fmt.Errorf("%w: %d frames for %dx%d grid", ErrGridOverflow, n, l.Rows, l.Cols)
	}
	return nil
}

// NewCanvas returns a black canvas sized for the layout.
func (l Layout) NewCanvas() gocv.Mat {
	return gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 0, 0), l.Height(), l.Width(), gocv.MatTypeCV8UC3)
}

// Composite resizes every frame to the cell size and places the i-th frame
// at cell i. Unused cells and empty frames stay black. Aspect ratio is not
// preserved. The caller owns the returned canvas.
func Composite(frames []gocv.Mat, l Layout) (gocv.Mat, error) {
	if err := l.Validate(); err != nil {
		return gocv.Mat{}, err
	}
	if err := l.CheckFits(len(frames)); err != nil {
		return gocv.Mat{}, err
	}

	canvas := l.NewCanvas()
	for i, frame := range frames {
		if frame.Empty() {
			continue
		}
		if err := place(&canvas, frame, l.Cell(i)); err != nil {
			canvas.Close()
			return gocv.Mat{}, fmt.Errorf("cell %d: %w", i, err)
		}
	}
	return canvas, nil
}

// place resizes frame into the canvas region r.
func place(canvas *gocv.Mat, frame gocv.Mat, r image.Rectangle) error {
	src := frame
	if frame.Channels() == 1 {
		bgr := gocv.NewMat()
		defer bgr.Close()
		gocv.CvtColor(frame, &bgr, gocv.ColorGrayToBGR)
		src = bgr
	}
	if src.Channels() != 3 {
		return fmt.Errorf("unsupported frame with %d channels", src.Channels())
	}

	cell := gocv.NewMat()
	defer cell.Close()
	gocv.Resize(src, &cell, image.Pt(r.Dx(), r.Dy()), 0, 0, gocv.InterpolationLinear)

	roi := canvas.Region(r)
	defer roi.Close()
	cell.CopyTo(&roi)
	return nil
}
