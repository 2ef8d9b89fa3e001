package main

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParsePredicateArgSplitsOnLastDot(t *testing.T) {
	pred, err := parsePredicateArg("test.nested.person")
	require.NoError(t, err)
	require.Equal(t, "test.nested", pred.Namespace)
	require.Equal(t, "person", pred.Name)
}

func TestParsePredicateArgRejectsMissingDot(t *testing.T) {
	_, err := parsePredicateArg("person")
	require.Error(t, err)
}
