package service

import (
	"bytes"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Nvda06042005/website-quan-ly-ky-tuc-xa-sinh-vien/pkg/config"
	appErrors "github.com/Nvda06042005/website-quan-ly-ky-tuc-xa-sinh-vien/pkg/errors"
	"github.com/Nvda06042005/website-quan-ly-ky-tuc-xa-sinh-vien/pkg/storage"
)

var pngHeader = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 13, 'I', 'H', 'D', 'R'}

func newUploadService(t *testing.T, maxSize int64) *UploadService {
	t.Helper()
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	signer := storage.NewSignedURLSigner("test-secret", time.Minute)
	return NewUploadService(store, signer, zap.NewNop(), config.UploadsConfig{MaxFileSizeBytes: maxSize})
}

func TestUploadStoreAcceptsPNG(t *testing.T) {
	svc := newUploadService(t, 1024)

	stored, err := svc.Store("u1", ImagePortrait, bytes.NewReader(pngHeader), int64(len(pngHeader)))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(stored.Path, "identity/u1/portrait_"))
	assert.True(t, strings.HasSuffix(stored.Path, ".png"))
	assert.NotEmpty(t, stored.SignedURL)

	file, err := svc.OpenByToken(stored.SignedURL)
	require.NoError(t, err)
	defer file.Close()
	data, err := io.ReadAll(file)
	require.NoError(t, err)
	assert.Equal(t, pngHeader, data)
}

func TestUploadStoreRejectsDeclaredOversize(t *testing.T) {
	svc := newUploadService(t, 16)

	_, err := svc.Store("u1", ImagePortrait, bytes.NewReader(pngHeader), 17)

	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestUploadStoreRejectsActualOversize(t *testing.T) {
	svc := newUploadService(t, 8)

	// declared size lies, actual payload is larger than the limit
	_, err := svc.Store("u1", ImagePortrait, bytes.NewReader(pngHeader), 4)

	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestUploadStoreRejectsSniffedType(t *testing.T) {
	svc := newUploadService(t, 1024)

	_, err := svc.Store("u1", ImageIDCardFront, strings.NewReader("plain text pretending to be an image"), 36)

	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
	assert.Contains(t, appErr.Message, "not allowed")
}

func TestUploadStoreRejectsEmptyFile(t *testing.T) {
	svc := newUploadService(t, 1024)

	_, err := svc.Store("u1", ImagePortrait, bytes.NewReader(nil), 0)

	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestUploadSignedURLScope(t *testing.T) {
	svc := newUploadService(t, 1024)

	_, err := svc.SignedURL(studentActor("u2"), "u1", "identity/u1/portrait_x.png")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	stored, err := svc.SignedURL(studentActor("u1"), "u1", "identity/u1/portrait_x.png")
	require.NoError(t, err)
	assert.NotEmpty(t, stored.SignedURL)

	stored, err = svc.SignedURL(staffActor(), "u1", "identity/u1/portrait_x.png")
	require.NoError(t, err)
	assert.NotEmpty(t, stored.SignedURL)
}

func TestUploadSignedURLBindsPathToOwner(t *testing.T) {
	svc := newUploadService(t, 1024)

	// Claiming your own id while pointing at another student's file must
	// not produce a token.
	_, err := svc.SignedURL(studentActor("u2"), "u2", "identity/u1/portrait_x.png")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	// The same mismatch is rejected for staff.
	_, err = svc.SignedURL(staffActor(), "u2", "identity/u1/portrait_x.png")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	_, err = svc.SignedURL(studentActor("u2"), "u2", "../identity/u1/portrait_x.png")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestUploadOpenByTokenRejectsForeignPathClaim(t *testing.T) {
	svc := newUploadService(t, 1024)

	stored, err := svc.Store("u1", ImagePortrait, bytes.NewReader(pngHeader), int64(len(pngHeader)))
	require.NoError(t, err)

	// A token whose owner does not match the file's identity directory
	// must never open the file, even with a valid signature.
	signer := storage.NewSignedURLSigner("test-secret", time.Minute)
	token, _, err := signer.Sign("u2", stored.Path)
	require.NoError(t, err)

	_, err = svc.OpenByToken(token)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}

func TestUploadOpenByTokenRejectsTampering(t *testing.T) {
	svc := newUploadService(t, 1024)

	stored, err := svc.Store("u1", ImagePortrait, bytes.NewReader(pngHeader), int64(len(pngHeader)))
	require.NoError(t, err)

	_, err = svc.OpenByToken(stored.SignedURL + "0")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}
