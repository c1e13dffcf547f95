package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSignedURLSignerSignAndVerify(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Hour)
	token, claim, err := signer.Sign("user-1", "identity/user-1/portrait.jpg")
	require.NoError(t, err)
	require.NotEmpty(t, token)
	require.False(t, claim.ExpiresAt.IsZero())

	verified, err := signer.Verify(token)
	require.NoError(t, err)
	require.Equal(t, "user-1", verified.OwnerID)
	require.Equal(t, "identity/user-1/portrait.jpg", verified.Path)
	require.WithinDuration(t, claim.ExpiresAt, verified.ExpiresAt, time.Second)
}

func TestSignedURLSignerExpired(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Millisecond*10)
	token, _, err := signer.Sign("user-1", "identity/user-1/portrait.jpg")
	require.NoError(t, err)
	time.Sleep(time.Millisecond * 20)

	_, err = signer.Verify(token)
	require.Error(t, err)

	// Decode skips the expiry check so cleanup can still find the file.
	claim, err := signer.Decode(token)
	require.NoError(t, err)
	require.Equal(t, "user-1", claim.OwnerID)
	require.Equal(t, "identity/user-1/portrait.jpg", claim.Path)
}

func TestSignedURLSignerRejectsTampering(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Hour)
	token, _, err := signer.Sign("user-1", "identity/user-1/portrait.jpg")
	require.NoError(t, err)

	_, err = signer.Verify("A" + token[1:])
	require.Error(t, err)

	other := NewSignedURLSigner("other-secret", time.Hour)
	_, err = other.Verify(token)
	require.Error(t, err)
}

func TestLocalStorageRejectsEscapingPaths(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	_, err = store.Open("../outside.txt")
	require.Error(t, err)

	_, err = store.Open("/etc/passwd")
	require.Error(t, err)
}
