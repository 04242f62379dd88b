package auth

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHashAndCheckPassword(t *testing.T) {
	hash, err := HashPassword("s3cret-pw")
	require.NoError(t, err)
	require.NotEqual(t, "s3cret-pw", hash)

	require.True(t, CheckPassword("s3cret-pw", hash))
	require.False(t, CheckPassword("wrong-pw", hash))
	require.False(t, CheckPassword("s3cret-pw", "not-a-bcrypt-hash"))
}

func TestHashPasswordUniqueSalt(t *testing.T) {
	first, err := HashPassword("same-pw")
	require.NoError(t, err)
	second, err := HashPassword("same-pw")
	require.NoError(t, err)

	require.NotEqual(t, first, second)
	require.True(t, CheckPassword("same-pw", first))
	require.True(t, CheckPassword("same-pw", second))
}
