package ratingdomain

import (
	"math"
	"testing"

	"github.com/de-tools/soil-atlas/pkg/models/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var limitation = []string{"Slight", "Moderate", "Severe"}

func TestBuild_NoDataSlotFollowsTieBreak(t *testing.T) {
	tests := []struct {
		name       string
		tieBreak   domain.TieBreak
		wantNoData int
		wantOrder  []string
	}{
		{name: "higher puts no data first", tieBreak: domain.TieBreakHigher, wantNoData: 0, wantOrder: limitation},
		{name: "lower puts no data last", tieBreak: domain.TieBreakLower, wantNoData: 3, wantOrder: limitation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := Build(Input{DataType: domain.DataTypeClass, Legal: limitation, TieBreak: tt.tieBreak})
			require.NoError(t, err)

			assert.Equal(t, 4, d.Len())
			assert.Equal(t, tt.wantNoData, d.NoDataIndex())
			assert.True(t, d.At(tt.wantNoData).IsMissing())
			assert.Equal(t, tt.wantOrder, d.Legal())
			assert.False(t, d.Synthesized())
		})
	}
}

func TestBuild_CaseInsensitiveLookupKeepsFirstObservedCase(t *testing.T) {
	d, err := Build(Input{
		DataType: domain.DataTypeClass,
		Legal:    []string{"not limited", "somewhat limited", "very limited"},
		TieBreak: domain.TieBreakHigher,
		Observed: []string{"Very Limited", "VERY LIMITED", "Not limited"},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"Not limited", "somewhat limited", "Very Limited"}, d.Legal())

	idx, ok := d.Index(domain.Class("very LIMITED"))
	require.True(t, ok)
	assert.Equal(t, 3, idx)

	canon, err := d.Canonical(domain.Class("VERY limited "))
	require.NoError(t, err)
	assert.Equal(t, "Very Limited", canon.ClassName())

	_, err = d.Canonical(domain.Class("extremely limited"))
	assert.Error(t, err)
}

func TestBuild_SynthesizesFromObservedValues(t *testing.T) {
	d, err := Build(Input{
		DataType: domain.DataTypeClass,
		TieBreak: domain.TieBreakLower,
		Observed: []string{"B", "A", "b"},
	})
	require.NoError(t, err)

	assert.True(t, d.Synthesized())
	assert.Equal(t, []string{"B", "A"}, d.Legal())
	assert.Equal(t, 2, d.NoDataIndex())
}

func TestBuild_EmptyClassDomain(t *testing.T) {
	_, err := Build(Input{DataType: domain.DataTypeClass, TieBreak: domain.TieBreakHigher})
	assert.ErrorIs(t, err, domain.ErrEmptyDomain)
}

func TestBuild_NotRatedSitsNextToNoData(t *testing.T) {
	t.Run("higher", func(t *testing.T) {
		d, err := Build(Input{DataType: domain.DataTypeClass, Legal: limitation, NotRated: "Not rated", TieBreak: domain.TieBreakHigher})
		require.NoError(t, err)
		assert.Equal(t, []string{"Not rated", "Slight", "Moderate", "Severe"}, d.Legal())
		assert.Equal(t, 1, d.NotRatedIndex())
		assert.True(t, d.IsFallback(0))
		assert.True(t, d.IsFallback(1))
		assert.False(t, d.IsFallback(2))
	})

	t.Run("lower", func(t *testing.T) {
		d, err := Build(Input{DataType: domain.DataTypeClass, Legal: limitation, NotRated: "Not rated", TieBreak: domain.TieBreakLower})
		require.NoError(t, err)
		assert.Equal(t, []string{"Slight", "Moderate", "Severe", "Not rated"}, d.Legal())
		assert.Equal(t, 3, d.NotRatedIndex())
		assert.Equal(t, 4, d.NoDataIndex())
	})

	t.Run("already legal", func(t *testing.T) {
		d, err := Build(Input{DataType: domain.DataTypeClass, Legal: []string{"Not rated", "Low", "High"}, NotRated: "NOT RATED", TieBreak: domain.TieBreakLower})
		require.NoError(t, err)
		assert.Equal(t, []string{"Not rated", "Low", "High"}, d.Legal())
		assert.Equal(t, 0, d.NotRatedIndex())
	})
}

func TestRatingDomain_MissingNeverWinsATie(t *testing.T) {
	for _, tb := range []domain.TieBreak{domain.TieBreakLower, domain.TieBreakHigher} {
		t.Run(string(tb), func(t *testing.T) {
			class, err := Build(Input{DataType: domain.DataTypeClass, Legal: limitation, TieBreak: tb})
			require.NoError(t, err)
			for _, c := range limitation {
				assert.True(t, class.Prefer(domain.Class(c), domain.Missing()), c)
				assert.False(t, class.Prefer(domain.Missing(), domain.Class(c)), c)
			}

			numeric, err := Build(Input{DataType: domain.DataTypeNumeric, TieBreak: tb})
			require.NoError(t, err)
			assert.True(t, numeric.Prefer(domain.Numeric(-1e9), domain.Missing()))
			assert.True(t, numeric.Prefer(domain.Numeric(1e9), domain.Missing()))
		})
	}
}

func TestRatingDomain_RankNumeric(t *testing.T) {
	d, err := Build(Input{DataType: domain.DataTypeNumeric, TieBreak: domain.TieBreakHigher})
	require.NoError(t, err)

	assert.Equal(t, 1, d.Len())
	assert.Equal(t, 2.5, d.Rank(domain.Numeric(2.5)))
	assert.True(t, math.IsInf(d.Rank(domain.Missing()), -1))
	assert.True(t, d.Prefer(domain.Numeric(3), domain.Numeric(2)))
	_, ok := d.Index(domain.Numeric(3))
	assert.False(t, ok)
}

func TestRatingDomain_SameRating(t *testing.T) {
	d, err := Build(Input{DataType: domain.DataTypeClass, Legal: []string{"Yes", "No"}, TieBreak: domain.TieBreakHigher})
	require.NoError(t, err)

	assert.True(t, d.SameRating(domain.Class("yes"), domain.Class("YES")))
	assert.False(t, d.SameRating(domain.Class("yes"), domain.Class("no")))
	assert.False(t, d.SameRating(domain.Class("1"), domain.Numeric(1)))
	assert.True(t, d.SameRating(domain.Numeric(1), domain.Numeric(1)))
}
