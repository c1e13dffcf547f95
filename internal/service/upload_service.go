package service

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Nvda06042005/website-quan-ly-ky-tuc-xa-sinh-vien/internal/models"
	"github.com/Nvda06042005/website-quan-ly-ky-tuc-xa-sinh-vien/pkg/config"
	appErrors "github.com/Nvda06042005/website-quan-ly-ky-tuc-xa-sinh-vien/pkg/errors"
	"github.com/Nvda06042005/website-quan-ly-ky-tuc-xa-sinh-vien/pkg/storage"
)

// ImageKind names the identity images collected at registration.
type ImageKind string

const (
	ImagePortrait    ImageKind = "portrait"
	ImageIDCardFront ImageKind = "id_card_front"
	ImageIDCardBack  ImageKind = "id_card_back"
)

var imageExtensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
}

// StoredImage describes a persisted identity image.
type StoredImage struct {
	Path      string    `json:"path"`
	SignedURL string    `json:"signed_url"`
	ExpiresAt time.Time `json:"expires_at"`
}

// UploadService validates and stores identity images, and issues signed
// download tokens for them.
type UploadService struct {
	store  *storage.LocalStorage
	signer *storage.SignedURLSigner
	logger *zap.Logger
	cfg    config.UploadsConfig
}

// NewUploadService constructs an UploadService.
func NewUploadService(store *storage.LocalStorage, signer *storage.SignedURLSigner, logger *zap.Logger, cfg config.UploadsConfig) *UploadService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if len(cfg.AllowedMIMEs) == 0 {
		cfg.AllowedMIMEs = []string{"image/jpeg", "image/png"}
	}
	if cfg.MaxFileSizeBytes <= 0 {
		cfg.MaxFileSizeBytes = 5 * 1024 * 1024
	}
	return &UploadService{store: store, signer: signer, logger: logger, cfg: cfg}
}

// Store validates and persists one identity image for the given user.
// The content type is sniffed from the payload rather than trusted from
// the request.
func (s *UploadService) Store(userID string, kind ImageKind, r io.Reader, declaredSize int64) (*StoredImage, error) {
	if declaredSize > s.cfg.MaxFileSizeBytes {
		return nil, appErrors.Clone(appErrors.ErrValidation,
			fmt.Sprintf("file exceeds the %d byte limit", s.cfg.MaxFileSizeBytes))
	}

	data, err := io.ReadAll(io.LimitReader(r, s.cfg.MaxFileSizeBytes+1))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read upload")
	}
	if int64(len(data)) > s.cfg.MaxFileSizeBytes {
		return nil, appErrors.Clone(appErrors.ErrValidation,
			fmt.Sprintf("file exceeds the %d byte limit", s.cfg.MaxFileSizeBytes))
	}
	if len(data) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "file is empty")
	}

	mimeType := http.DetectContentType(data)
	if idx := strings.Index(mimeType, ";"); idx > 0 {
		mimeType = mimeType[:idx]
	}
	if !s.mimeAllowed(mimeType) {
		return nil, appErrors.Clone(appErrors.ErrValidation,
			fmt.Sprintf("content type %s is not allowed", mimeType))
	}

	ext := imageExtensions[mimeType]
	relPath := path.Join("identity", userID, fmt.Sprintf("%s_%s%s", kind, uuid.NewString(), ext))
	if _, err := s.store.SaveStream(relPath, bytes.NewReader(data)); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store upload")
	}

	token, claim, err := s.signer.Sign(userID, relPath)
	if err != nil {
		if removeErr := s.store.Remove(relPath); removeErr != nil {
			s.logger.Warn("failed to remove orphaned upload", zap.Error(removeErr))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign download url")
	}

	s.logger.Info("identity image stored",
		zap.String("userId", userID),
		zap.String("kind", string(kind)),
		zap.String("path", relPath))

	return &StoredImage{Path: relPath, SignedURL: token, ExpiresAt: claim.ExpiresAt}, nil
}

// SignedURL issues a fresh download token for a stored image. Students
// may only sign their own images, and a token is only ever issued for a
// path inside the owner's identity directory.
func (s *UploadService) SignedURL(actor models.Actor, ownerID, relPath string) (*StoredImage, error) {
	if !actor.IsStaff() && actor.UserID != ownerID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "cannot access another user's images")
	}
	if !ownsPath(ownerID, relPath) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "path does not belong to this owner")
	}
	token, claim, err := s.signer.Sign(ownerID, relPath)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign download url")
	}
	return &StoredImage{Path: relPath, SignedURL: token, ExpiresAt: claim.ExpiresAt}, nil
}

// OpenByToken validates a download token and opens the referenced file.
// The claim's owner must match the path's identity directory, so a token
// signed for one owner can never serve another owner's file.
func (s *UploadService) OpenByToken(token string) (*os.File, error) {
	claim, err := s.signer.Verify(token)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid download token")
	}
	if !ownsPath(claim.OwnerID, claim.Path) {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid download token")
	}
	file, err := s.store.Open(claim.Path)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "file not found")
	}
	return file, nil
}

// ownsPath reports whether relPath sits inside the owner's identity
// directory, the only place Store writes for that owner.
func ownsPath(ownerID, relPath string) bool {
	return ownerID != "" && strings.HasPrefix(relPath, path.Join("identity", ownerID)+"/")
}

func (s *UploadService) mimeAllowed(mimeType string) bool {
	for _, allowed := range s.cfg.AllowedMIMEs {
		if strings.EqualFold(allowed, mimeType) {
			return true
		}
	}
	return false
}
