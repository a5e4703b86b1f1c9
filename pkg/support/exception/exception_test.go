package exception_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/camposclima/heliomorph/pkg/support/exception"
)

func TestErrorFormatting(t *testing.T) {
	cause := errors.New("disk full")
	err := exception.New("profile", exception.KindStructural, "failed to write profile", cause)

	assert.Equal(t, "[profile] StructuralError: failed to write profile: disk full", err.Error())
	assert.NotEmpty(t, err.StackTrace)

	bare := exception.Newf("morph", exception.KindMorph, "factor for month %d is not finite", 7)
	assert.Equal(t, "[morph] MorphError: factor for month 7 is not finite", bare.Error())
}

func TestUnwrapChainsSentinelAndCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := exception.New("gridreader", exception.KindDataUnavailable, "failed to open grid file", cause)

	assert.True(t, errors.Is(err, exception.ErrDataUnavailable))
	assert.True(t, errors.Is(err, cause))
	assert.False(t, errors.Is(err, exception.ErrStructural))
}

func TestKindSurvivesWrapping(t *testing.T) {
	inner := exception.Newf("simulate", exception.KindSimulation, "solver crashed")
	wrapped := fmt.Errorf("pair ssp245/2050: %w", inner)

	assert.True(t, exception.IsSimulation(wrapped))
	assert.False(t, exception.IsSimulation(errors.New("plain")))
	assert.False(t, exception.IsSimulation(nil))
}

func TestKindPredicates(t *testing.T) {
	cases := []struct {
		kind  exception.Kind
		check func(error) bool
	}{
		{exception.KindStructural, exception.IsStructural},
		{exception.KindDataUnavailable, exception.IsDataUnavailable},
		{exception.KindMorph, exception.IsMorph},
		{exception.KindSimulation, exception.IsSimulation},
		{exception.KindConfig, exception.IsConfig},
	}

	for _, tc := range cases {
		t.Run(string(tc.kind), func(t *testing.T) {
			err := exception.Newf("module", tc.kind, "boom")
			assert.True(t, tc.check(err))
			for _, other := range cases {
				if other.kind != tc.kind {
					assert.False(t, other.check(err), "kind %s must not match %s", tc.kind, other.kind)
				}
			}
		})
	}
}

func TestExtractKind(t *testing.T) {
	err := exception.Newf("validate", exception.KindStructural, "row count mismatch")
	assert.Equal(t, "StructuralError", exception.ExtractKind(err))

	wrapped := fmt.Errorf("outer: %w", err)
	assert.Equal(t, "StructuralError", exception.ExtractKind(wrapped))

	assert.Equal(t, "unknown", exception.ExtractKind(errors.New("plain")))
}

func TestExtractMessage(t *testing.T) {
	cause := errors.New("underlying")
	err := exception.New("simulate", exception.KindSimulation, "solver crashed", cause)

	// The clean message, not the full decorated Error() string.
	assert.Equal(t, "solver crashed", exception.ExtractMessage(err))
	assert.Equal(t, "plain", exception.ExtractMessage(errors.New("plain")))
	assert.Equal(t, "", exception.ExtractMessage(nil))
}

func TestIsKindRequiresMatchingKind(t *testing.T) {
	err := exception.Newf("config", exception.KindConfig, "run.model must not be empty")
	require.True(t, exception.IsKind(err, exception.KindConfig))
	assert.False(t, exception.IsKind(err, exception.KindMorph))
	assert.False(t, exception.IsKind(nil, exception.KindConfig))
}
