package geometry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeTransform_WorkedScenario(t *testing.T) {
	tr, err := ComputeTransform(600, 800, 800, 1024, true)
	require.NoError(t, err)

	assert.InDelta(t, 1.28, tr.Scale, 1e-9)
	assert.Equal(t, 768, tr.Height)
	assert.Equal(t, 1024, tr.Width)
	assert.Equal(t, Padding{Top: 128, Bottom: 128, Left: 0, Right: 0}, tr.Padding)
	assert.Equal(t, Window{Y1: 128, X1: 0, Y2: 896, X2: 1024}, tr.Window)

	h, w := tr.CanvasSize()
	assert.Equal(t, 1024, h)
	assert.Equal(t, 1024, w)
}

func TestComputeTransform_NeverExceedsMaxDim(t *testing.T) {
	sizes := []int{1, 3, 17, 63, 100, 333, 600, 799, 800, 1023, 1024, 1025, 2999, 4000}
	dims := []struct{ min, max int }{
		{800, 1024}, {512, 512}, {0, 256}, {1000, 300}, {64, 1000},
	}
	for _, d := range dims {
		for _, h := range sizes {
			for _, w := range sizes {
				tr, err := ComputeTransform(h, w, d.min, d.max, false)
				require.NoError(t, err)
				assert.LessOrEqual(t, max(tr.Height, tr.Width), d.max,
					"h=%d w=%d min=%d max=%d", h, w, d.min, d.max)
				assert.Positive(t, tr.Height)
				assert.Positive(t, tr.Width)
			}
		}
	}
}

func TestComputeTransform_EdgeCases(t *testing.T) {
	tests := []struct {
		name         string
		h, w         int
		minDim       int
		maxDim       int
		pad          bool
		wantScale    float64
		wantH, wantW int
		wantPadding  Padding
		wantWindow   Window
	}{
		{
			name: "min dim zero disables upscaling",
			h:    100, w: 50, minDim: 0, maxDim: 1024,
			wantScale: 1, wantH: 100, wantW: 50,
			wantWindow: Window{0, 0, 100, 50},
		},
		{
			name: "max dim zero disables clamp",
			h:    100, w: 400, minDim: 200, maxDim: 0,
			wantScale: 2, wantH: 200, wantW: 800,
			wantWindow: Window{0, 0, 200, 800},
		},
		{
			name: "large image is only shrunk",
			h:    2000, w: 1000, minDim: 800, maxDim: 1024,
			wantScale: 0.512, wantH: 1024, wantW: 512,
			wantWindow: Window{0, 0, 1024, 512},
		},
		{
			name: "odd leftover biases to bottom right",
			h:    5, w: 7, minDim: 0, maxDim: 10, pad: true,
			wantScale: 1, wantH: 5, wantW: 7,
			wantPadding: Padding{Top: 2, Bottom: 3, Left: 1, Right: 2},
			wantWindow:  Window{2, 1, 7, 8},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr, err := ComputeTransform(tt.h, tt.w, tt.minDim, tt.maxDim, tt.pad)
			require.NoError(t, err)
			assert.InDelta(t, tt.wantScale, tr.Scale, 1e-9)
			assert.Equal(t, tt.wantH, tr.Height)
			assert.Equal(t, tt.wantW, tr.Width)
			assert.Equal(t, tt.wantPadding, tr.Padding)
			assert.Equal(t, tt.wantWindow, tr.Window)
		})
	}
}

func TestComputeTransform_InvalidInput(t *testing.T) {
	tests := []struct {
		name                 string
		h, w, minDim, maxDim int
		pad                  bool
	}{
		{"zero height", 0, 10, 0, 0, false},
		{"negative width", 10, -1, 0, 0, false},
		{"negative min dim", 10, 10, -1, 0, false},
		{"padding without max dim", 10, 10, 0, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ComputeTransform(tt.h, tt.w, tt.minDim, tt.maxDim, tt.pad)
			require.Error(t, err)
		})
	}
}

func TestTransform_MapBox(t *testing.T) {
	tr, err := ComputeTransform(600, 800, 800, 1024, true)
	require.NoError(t, err)

	got := tr.MapBox(NewBox(10, 20, 110, 220))
	assert.Equal(t, NewBox(128+13, 26, 128+141, 282), got)
	assert.True(t, got.Valid())
}
