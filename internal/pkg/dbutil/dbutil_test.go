package dbutil

import (
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/require"
)

func TestFinalizeRewritesLimitOffset(t *testing.T) {
	query := "SELECT id FROM documents WHERE status = ? ORDER BY ctime DESC LIMIT ?,?"
	args := []interface{}{"active", uint(10), uint(5)}

	out, outArgs := Finalize(query, args)
	require.Equal(t, "SELECT id FROM documents WHERE status = $1 ORDER BY ctime DESC LIMIT $2 OFFSET $3", out)
	// gendry emits offset,count; postgres wants count,offset
	require.Equal(t, []interface{}{"active", uint(5), uint(10)}, outArgs)
}

func TestFinalizeWithoutLimit(t *testing.T) {
	out, args := Finalize("SELECT id FROM users WHERE email = ?", []interface{}{"a@b.c"})
	require.Equal(t, "SELECT id FROM users WHERE email = $1", out)
	require.Equal(t, []interface{}{"a@b.c"}, args)
}

func TestIsConflict(t *testing.T) {
	require.True(t, IsConflict(&pq.Error{Code: "23505"}))
	require.False(t, IsConflict(&pq.Error{Code: "42601"}))
	require.False(t, IsConflict(nil))
}
