package attribute

import (
	"context"
	"errors"
	"testing"

	"github.com/de-tools/soil-atlas/pkg/models/domain"
	"github.com/de-tools/soil-atlas/pkg/models/store"
	"github.com/de-tools/soil-atlas/pkg/store/catalog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockAttributes struct {
	mock.Mock
}

func (m *MockAttributes) Attribute(ctx context.Context, name string) (*store.AttributeRecord, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*store.AttributeRecord), args.Error(1)
}

func (m *MockAttributes) List(ctx context.Context) ([]store.AttributeRecord, error) {
	args := m.Called(ctx)
	return args.Get(0).([]store.AttributeRecord), args.Error(1)
}

func TestResolver_Resolve(t *testing.T) {
	ctx := context.Background()
	def, err := catalog.Default()
	require.NoError(t, err)
	r, err := NewResolver(def)
	require.NoError(t, err)

	t.Run("resolves a plain attribute", func(t *testing.T) {
		desc, err := r.Resolve(ctx, "available water storage", Constraints{})
		require.NoError(t, err)

		assert.Equal(t, "Available Water Storage", desc.Name)
		assert.Equal(t, "chorizon", desc.Table)
		assert.Equal(t, domain.DataTypeNumeric, desc.DataType)
		assert.Equal(t, domain.LevelHorizon, desc.Level)
		assert.Equal(t, domain.MethodWeightedSum, desc.Method)
		assert.Equal(t, 2, desc.Precision)
		assert.Equal(t, "Lower", desc.LowerLabel)
	})

	t.Run("unknown attribute", func(t *testing.T) {
		_, err := r.Resolve(ctx, "Unobtainium Content", Constraints{})

		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrUnknownAttribute)
		var re *domain.RatingError
		require.True(t, errors.As(err, &re))
		assert.Equal(t, "Unobtainium Content", re.Attribute)
	})

	t.Run("missing primary constraint", func(t *testing.T) {
		_, err := r.Resolve(ctx, "Dwellings With Basements", Constraints{})
		assert.ErrorIs(t, err, domain.ErrAmbiguousConstraint)
	})

	t.Run("missing secondary constraint", func(t *testing.T) {
		_, err := r.Resolve(ctx, "Crop Yield", Constraints{Primary: "Corn"})
		assert.ErrorIs(t, err, domain.ErrAmbiguousConstraint)
	})

	t.Run("constraints become equality filters", func(t *testing.T) {
		desc, err := r.Resolve(ctx, "Dwellings With Basements", Constraints{Primary: "ENG - Dwellings With Basements"})
		require.NoError(t, err)

		assert.Equal(t, []domain.Condition{
			{Column: "ruledepth", Value: int64(0)},
			{Column: "mrulename", Value: "ENG - Dwellings With Basements"},
		}, desc.Constraints())
	})

	t.Run("fuzzy switches to the continuous column", func(t *testing.T) {
		desc, err := r.Resolve(ctx, "Dwellings With Basements", Constraints{
			Primary: "ENG - Dwellings With Basements",
			Fuzzy:   true,
		})
		require.NoError(t, err)

		assert.True(t, desc.Fuzzy)
		assert.Equal(t, "interphr", desc.Column)
		assert.Equal(t, domain.DataTypeNumeric, desc.DataType)
		assert.Equal(t, domain.MethodWeightedAverage, desc.Method)
		assert.Equal(t, &domain.DisplayRange{Min: 0, Max: 1}, desc.Display)
		assert.Equal(t, FuzzyPrecision, desc.Precision)
		assert.Empty(t, desc.NotRated)
		assert.Empty(t, desc.DomainName)
	})

	t.Run("fuzzy without a fuzzy column", func(t *testing.T) {
		_, err := r.Resolve(ctx, "Clay Total", Constraints{Fuzzy: true})
		assert.ErrorContains(t, err, "no fuzzy values")
	})
}

func TestResolver_CatalogFailure(t *testing.T) {
	ctx := context.Background()
	m := new(MockAttributes)
	m.On("Attribute", ctx, "Clay Total").Return(nil, errors.New("connection reset"))

	r, err := NewResolver(m)
	require.NoError(t, err)

	_, err = r.Resolve(ctx, "Clay Total", Constraints{})
	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrUnknownAttribute)
	assert.ErrorContains(t, err, "connection reset")
	m.AssertExpectations(t)
}

func TestResolver_BadMetadata(t *testing.T) {
	ctx := context.Background()
	m := new(MockAttributes)
	m.On("Attribute", ctx, "Odd").Return(&store.AttributeRecord{
		Name: "Odd", Table: "component", Column: "odd", LogicalType: "Blob", Level: "component",
	}, nil)

	r, err := NewResolver(m)
	require.NoError(t, err)

	_, err = r.Resolve(ctx, "Odd", Constraints{})
	assert.ErrorContains(t, err, "unsupported logical data type")
}

func TestNewResolver_NilCatalog(t *testing.T) {
	_, err := NewResolver(nil)
	assert.Error(t, err)
}
