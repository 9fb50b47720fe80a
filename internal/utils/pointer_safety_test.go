package utils

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPointerHelpers(t *testing.T) {
	require.Equal(t, "", Value[string](nil))
	require.Equal(t, "alice@example.com", Value(Ptr("alice@example.com")))
	require.Equal(t, 0, Value[int](nil))
}
