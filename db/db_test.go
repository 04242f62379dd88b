package db

import (
	"errors"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/require"
)

func TestIsUniqueViolation(t *testing.T) {
	unique := &pq.Error{Code: "23505", Constraint: "bids_project_id_candidate_id_key"}
	require.True(t, isUniqueViolation(unique))
	require.Equal(t, "bids_project_id_candidate_id_key", constraintOf(unique))

	fk := &pq.Error{Code: "23503"}
	require.False(t, isUniqueViolation(fk))

	require.False(t, isUniqueViolation(errors.New("plain error")))
	require.Empty(t, constraintOf(errors.New("plain error")))
	require.False(t, isUniqueViolation(nil))
}
