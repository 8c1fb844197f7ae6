package boxcodec

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ironsheep/maskrcnn-prep/internal/geometry"
)

func assertDeltaInDelta(t *testing.T, want, got Delta, tol float64) {
	t.Helper()
	for i := range want {
		assert.InDelta(t, want[i], got[i], tol, "component %d", i)
	}
}

func TestEncode_KnownValues(t *testing.T) {
	anchor := geometry.NewBox(0, 0, 10, 20)

	assert.Equal(t, Delta{0, 0, 0, 0}, Encode(anchor, anchor))

	d := Encode(anchor, geometry.NewBox(5, 10, 15, 30))
	assertDeltaInDelta(t, Delta{0.5, 0.5, 0, 0}, d, 1e-12)

	d = Encode(anchor, geometry.NewBox(-5, -10, 15, 30))
	assertDeltaInDelta(t, Delta{0, 0, 0.6931471805599453, 0.6931471805599453}, d, 1e-12)
}

func TestRoundTrip_DecodeThenEncode(t *testing.T) {
	r := rand.New(rand.NewPCG(7, 11))
	for i := 0; i < 1000; i++ {
		y1, x1 := r.Float64()*500-100, r.Float64()*500-100
		anchor := geometry.NewBox(y1, x1, y1+1+r.Float64()*300, x1+1+r.Float64()*300)
		d := Delta{r.NormFloat64(), r.NormFloat64(), r.NormFloat64() * 0.5, r.NormFloat64() * 0.5}

		got := Encode(anchor, Decode(anchor, d))
		assertDeltaInDelta(t, d, got, 1e-9)
	}
}

func TestRoundTrip_EncodeThenDecode(t *testing.T) {
	r := rand.New(rand.NewPCG(3, 5))
	for i := 0; i < 1000; i++ {
		y1, x1 := r.Float64()*500, r.Float64()*500
		anchor := geometry.NewBox(y1, x1, y1+1+r.Float64()*100, x1+1+r.Float64()*100)
		gy, gx := r.Float64()*500, r.Float64()*500
		gt := geometry.NewBox(gy, gx, gy+1+r.Float64()*100, gx+1+r.Float64()*100)

		got := Decode(anchor, Encode(anchor, gt))
		assert.InDelta(t, gt.Y1, got.Y1, 1e-9)
		assert.InDelta(t, gt.X1, got.X1, 1e-9)
		assert.InDelta(t, gt.Y2, got.Y2, 1e-9)
		assert.InDelta(t, gt.X2, got.X2, 1e-9)
	}
}

func TestNormalize(t *testing.T) {
	std := [4]float64{0.1, 0.1, 0.2, 0.2}
	d := Delta{1, -2, 0.4, 0.8}

	n := d.Normalize(std)
	assertDeltaInDelta(t, Delta{10, -20, 2, 4}, n, 1e-12)
	assertDeltaInDelta(t, d, n.Denormalize(std), 1e-12)
	// value receiver leaves the original alone
	assert.Equal(t, Delta{1, -2, 0.4, 0.8}, d)
}
