package validate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvalExprArithmetic(t *testing.T) {
	v, err := evalExpr("1 + 2 * (3 - 1)")
	require.NoError(t, err)
	assert.InDelta(t, 5.0, v, 1e-9)
}

func TestEvalExprExpAndConstants(t *testing.T) {
	v, err := evalExpr("exp(0) + 1")
	require.NoError(t, err)
	assert.InDelta(t, 2.0, v, 1e-9)
}

func TestConcretizeProbabilitySubstitutesBoole(t *testing.T) {
	v, err := ConcretizeProbability("Boole(True) * (1/2)", "out", []float64{1})
	require.NoError(t, err)
	assert.InDelta(t, 0.5, v, 1e-9)
}

func TestPreprocessRejectsNonListReturn(t *testing.T) {
	_, err := preprocess("def foo() { out := 5; return out; }")
	assert.Error(t, err)
}

func TestPreprocessAcceptsListReturn(t *testing.T) {
	name, err := preprocess("def foo() { out := ([]:R[]); return out; }")
	require.NoError(t, err)
	assert.Equal(t, "out", name)
}

func TestRatioExceedsDetectsViolation(t *testing.T) {
	assert.True(t, RatioExceeds(0.9, 0.1, 1.0, 1))
	assert.False(t, RatioExceeds(0.5, 0.3, 1.0, 1))
}
