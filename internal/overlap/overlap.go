package overlap

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/ironsheep/maskrcnn-prep/internal/geometry"
)

// IoU returns the intersection area of a and b divided by their union area.
// It is 0 when the boxes are disjoint or either one has no area.
func IoU(a, b geometry.Box) float64 {
	return iou(a, a.Area(), b, b.Area())
}

func iou(a geometry.Box, areaA float64, b geometry.Box, areaB float64) float64 {
	if areaA <= 0 || areaB <= 0 {
		return 0
	}
	h := math.Min(a.Y2, b.Y2) - math.Max(a.Y1, b.Y1)
	w := math.Min(a.X2, b.X2) - math.Max(a.X1, b.X1)
	if h <= 0 || w <= 0 {
		return 0
	}
	inter := h * w
	return inter / (areaA + areaB - inter)
}

// Matrix is an N x M table of IoU values between N anchors and M ground-truth
// boxes. Either dimension may be zero.
type Matrix struct {
	rows, cols int
	dense      *mat.Dense
}

// ComputeOverlaps fills the IoU matrix of anchors against gt one row at a
// time, so memory beyond the result is O(M).
func ComputeOverlaps(anchors, gt geometry.BoxList) *Matrix {
	n, m := anchors.Len(), gt.Len()
	out := &Matrix{rows: n, cols: m}
	if n == 0 || m == 0 {
		return out
	}

	gtAreas := make([]float64, m)
	for j := range gtAreas {
		gtAreas[j] = gt.At(j).Area()
	}

	out.dense = mat.NewDense(n, m, nil)
	for i := 0; i < n; i++ {
		a := anchors.At(i)
		areaA := a.Area()
		row := out.dense.RawRowView(i)
		for j := range row {
			row[j] = iou(a, areaA, gt.At(j), gtAreas[j])
		}
	}
	return out
}

// Dims returns the number of anchors and ground-truth boxes.
func (m *Matrix) Dims() (int, int) { return m.rows, m.cols }

// At returns the IoU of anchor i and box j.
func (m *Matrix) At(i, j int) float64 { return m.dense.At(i, j) }

// Dense exposes the underlying matrix. It is nil when either dimension is
// zero.
func (m *Matrix) Dense() *mat.Dense { return m.dense }

// RowMax returns the best box for anchor i and its IoU. Ties resolve to the
// lowest box index. It returns (-1, 0) when there are no boxes.
func (m *Matrix) RowMax(i int) (int, float64) {
	if m.cols == 0 {
		return -1, 0
	}
	row := m.dense.RawRowView(i)
	j := floats.MaxIdx(row)
	return j, row[j]
}

// ColArgmax returns the anchor with the highest IoU for box j. Ties resolve to
// the lowest anchor index. It returns -1 when there are no anchors.
func (m *Matrix) ColArgmax(j int) int {
	if m.rows == 0 {
		return -1
	}
	best, bestIoU := 0, m.dense.At(0, j)
	for i := 1; i < m.rows; i++ {
		if v := m.dense.At(i, j); v > bestIoU {
			best, bestIoU = i, v
		}
	}
	return best
}
