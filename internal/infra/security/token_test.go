package security

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestAdminTokenVerifier(t *testing.T) {
	t.Parallel()

	hasher := BcryptHasher{Cost: bcrypt.MinCost}
	hash, err := hasher.Hash("s3cret")
	require.NoError(t, err)

	v := AdminTokenVerifier{Hash: hash, Hasher: hasher}
	assert.NoError(t, v.Verify("s3cret"))
	assert.NoError(t, v.Verify("  s3cret "))
	assert.ErrorIs(t, v.Verify("wrong"), ErrTokenRejected)
	assert.ErrorIs(t, v.Verify(""), ErrTokenRejected)
	assert.ErrorIs(t, AdminTokenVerifier{}.Verify("s3cret"), ErrTokenRejected)
}
