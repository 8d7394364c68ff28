package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	scierrors "github.com/ehoutland/tidymodels-test/pkg/errors"
)

func TestStateManager(t *testing.T) {
	s := NewStateManager()
	err := s.RequireFitted("LinearRegression", "Predict")
	require.Error(t, err)
	var nf *scierrors.NotFittedError
	assert.True(t, scierrors.As(err, &nf))
	assert.Equal(t, "Predict", nf.Method)

	s.SetDimensions(3, 10)
	s.SetFitted()
	assert.NoError(t, s.RequireFitted("LinearRegression", "Predict"))
	assert.NoError(t, s.RequireFeatures("Predict", 3))

	err = s.RequireFeatures("Predict", 2)
	var dim *scierrors.DimensionError
	require.True(t, scierrors.As(err, &dim))
	assert.Equal(t, 3, dim.Expected)
	assert.Equal(t, 2, dim.Got)

	assert.Equal(t, ModelState{Fitted: true, NFeatures: 3, NSamples: 10}, s.GetState())

	s.Reset()
	assert.False(t, s.IsFitted())
}
