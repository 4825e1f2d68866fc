package slicer

import (
	"testing"

	"github.com/de-tools/soil-atlas/pkg/models/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestThickness_Boundaries(t *testing.T) {
	tests := []struct {
		name   string
		top    float64
		bottom float64
		rng    domain.DepthRange
		want   float64
	}{
		{name: "touching the range bottom contributes nothing", top: 20, bottom: 30, rng: domain.DepthRange{Top: 0, Bottom: 20}, want: 0},
		{name: "partial overlap", top: 20, bottom: 30, rng: domain.DepthRange{Top: 10, Bottom: 25}, want: 5},
		{name: "range inside horizon", top: 0, bottom: 50, rng: domain.DepthRange{Top: 10, Bottom: 25}, want: 15},
		{name: "horizon inside range", top: 10, bottom: 30, rng: domain.DepthRange{Top: 0, Bottom: 100}, want: 20},
		{name: "horizon below range", top: 40, bottom: 60, rng: domain.DepthRange{Top: 0, Bottom: 20}, want: -20},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Thickness(tt.top, tt.bottom, tt.rng))
		})
	}
}

func TestSlicer_HorizonWeight(t *testing.T) {
	s := New(&domain.DepthRange{Top: 10, Bottom: 25}, nil)

	w, ok, err := s.Weight(domain.Leaf{Kind: domain.LeafHorizon, ID: "h1", Top: 0, Bottom: 20})
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 10.0, w)

	_, ok, err = s.Weight(domain.Leaf{Kind: domain.LeafHorizon, ID: "h2", Top: 25, Bottom: 40})
	require.NoError(t, err)
	assert.False(t, ok)

	_, _, err = s.Weight(domain.Leaf{Kind: domain.LeafHorizon, ID: "h3", Top: 30, Bottom: 30})
	assert.Error(t, err)
}

func TestSlicer_HorizonWithoutRangeUsesFullThickness(t *testing.T) {
	w, ok, err := New(nil, nil).Weight(domain.Leaf{Kind: domain.LeafHorizon, Top: 18, Bottom: 43})
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 25.0, w)
}

func TestSlicer_MonthWeight(t *testing.T) {
	s := New(nil, &domain.MonthRange{First: 4, Last: 6})

	for m := 1; m <= 12; m++ {
		w, ok, err := s.Weight(domain.Leaf{Kind: domain.LeafMonth, Month: m})
		require.NoError(t, err)
		assert.Equal(t, m >= 4 && m <= 6, ok, "month %d", m)
		if ok {
			assert.Equal(t, MonthWeight, w)
		}
	}

	_, _, err := s.Weight(domain.Leaf{Kind: domain.LeafMonth, ID: "x", Month: 13})
	assert.Error(t, err)
}

func TestSlicer_ComponentLevelLeafWeighsOne(t *testing.T) {
	w, ok, err := New(&domain.DepthRange{Top: 0, Bottom: 10}, nil).Weight(domain.Leaf{Kind: domain.LeafNone})
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 1.0, w)
}
