package overlap

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ironsheep/maskrcnn-prep/internal/geometry"
)

func randomBox(r *rand.Rand) geometry.Box {
	y1, x1 := r.Float64()*100, r.Float64()*100
	return geometry.NewBox(y1, x1, y1+1+r.Float64()*50, x1+1+r.Float64()*50)
}

func TestIoU_Properties(t *testing.T) {
	r := rand.New(rand.NewPCG(1, 2))
	for i := 0; i < 500; i++ {
		a, b := randomBox(r), randomBox(r)
		assert.InDelta(t, 1.0, IoU(a, a), 1e-12)
		assert.Equal(t, IoU(a, b), IoU(b, a))
		v := IoU(a, b)
		assert.GreaterOrEqual(t, v, 0.0)
		assert.LessOrEqual(t, v, 1.0)
	}
}

func TestIoU_KnownValues(t *testing.T) {
	tests := []struct {
		name string
		a, b geometry.Box
		want float64
	}{
		{"half overlap", geometry.NewBox(0, 0, 10, 10), geometry.NewBox(0, 5, 10, 15), 50.0 / 150.0},
		{"quarter corner", geometry.NewBox(0, 0, 100, 100), geometry.NewBox(50, 50, 150, 150), 2500.0 / 17500.0},
		{"contained", geometry.NewBox(0, 0, 10, 10), geometry.NewBox(2, 2, 7, 7), 25.0 / 100.0},
		{"disjoint", geometry.NewBox(0, 0, 10, 10), geometry.NewBox(20, 20, 30, 30), 0},
		{"touching edge", geometry.NewBox(0, 0, 10, 10), geometry.NewBox(0, 10, 10, 20), 0},
		{"zero area", geometry.NewBox(5, 5, 5, 9), geometry.NewBox(0, 0, 10, 10), 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, IoU(tt.a, tt.b), 1e-12)
		})
	}
}

func TestComputeOverlaps(t *testing.T) {
	anchors := geometry.Boxes{
		geometry.NewBox(0, 0, 10, 10),
		geometry.NewBox(0, 5, 10, 15),
		geometry.NewBox(50, 50, 60, 60),
	}
	gt := geometry.Boxes{
		geometry.NewBox(0, 0, 10, 10),
		geometry.NewBox(50, 50, 60, 60),
	}

	m := ComputeOverlaps(anchors, gt)
	n, k := m.Dims()
	require.Equal(t, 3, n)
	require.Equal(t, 2, k)

	for i := 0; i < n; i++ {
		for j := 0; j < k; j++ {
			assert.Equal(t, IoU(anchors[i], gt[j]), m.At(i, j))
		}
	}

	j, v := m.RowMax(0)
	assert.Equal(t, 0, j)
	assert.Equal(t, 1.0, v)
	j, v = m.RowMax(2)
	assert.Equal(t, 1, j)
	assert.Equal(t, 1.0, v)

	assert.Equal(t, 0, m.ColArgmax(0))
	assert.Equal(t, 2, m.ColArgmax(1))
}

func TestComputeOverlaps_TiesResolveToFirstIndex(t *testing.T) {
	anchors := geometry.Boxes{
		geometry.NewBox(100, 100, 110, 110),
		geometry.NewBox(0, 0, 10, 10),
		geometry.NewBox(0, 0, 10, 10),
	}
	gt := geometry.Boxes{
		geometry.NewBox(0, 0, 10, 10),
		geometry.NewBox(0, 0, 10, 10),
	}
	m := ComputeOverlaps(anchors, gt)

	assert.Equal(t, 1, m.ColArgmax(0))
	j, _ := m.RowMax(1)
	assert.Equal(t, 0, j)
	// an all-zero column picks anchor 0
	m = ComputeOverlaps(anchors, geometry.Boxes{geometry.NewBox(500, 500, 510, 510)})
	assert.Equal(t, 0, m.ColArgmax(0))
}

func TestComputeOverlaps_Empty(t *testing.T) {
	m := ComputeOverlaps(geometry.Boxes{geometry.NewBox(0, 0, 1, 1)}, geometry.Boxes{})
	n, k := m.Dims()
	assert.Equal(t, 1, n)
	assert.Zero(t, k)
	assert.Nil(t, m.Dense())
	j, v := m.RowMax(0)
	assert.Equal(t, -1, j)
	assert.Zero(t, v)

	m = ComputeOverlaps(geometry.Boxes{}, geometry.Boxes{geometry.NewBox(0, 0, 1, 1)})
	assert.Equal(t, -1, m.ColArgmax(0))
}
