package storage

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DownloadClaim is what a signed token grants: one file, owned by one
// user, for a limited time. Download handlers use the owner to enforce
// access without a database hit.
type DownloadClaim struct {
	OwnerID   string
	Path      string
	ExpiresAt time.Time
}

// Expired reports whether the claim is past its expiry at now.
func (c DownloadClaim) Expired(now time.Time) bool {
	return now.After(c.ExpiresAt)
}

// SignedURLSigner issues and verifies HMAC-signed download tokens for
// identity images.
type SignedURLSigner struct {
	secret []byte
	ttl    time.Duration
}

// NewSignedURLSigner constructs a signer with the provided secret and TTL.
func NewSignedURLSigner(secret string, ttl time.Duration) *SignedURLSigner {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &SignedURLSigner{
		secret: []byte(secret),
		ttl:    ttl,
	}
}

// Sign issues a token for the given owner and file path.
func (s *SignedURLSigner) Sign(ownerID, relPath string) (string, DownloadClaim, error) {
	if ownerID == "" || relPath == "" {
		return "", DownloadClaim{}, fmt.Errorf("owner and path required")
	}
	if len(s.secret) == 0 {
		return "", DownloadClaim{}, fmt.Errorf("signing secret missing")
	}
	claim := DownloadClaim{
		OwnerID:   ownerID,
		Path:      relPath,
		ExpiresAt: time.Now().Add(s.ttl),
	}
	payload := base64.RawURLEncoding.EncodeToString([]byte(
		ownerID + "\n" + strconv.FormatInt(claim.ExpiresAt.Unix(), 10) + "\n" + relPath))
	return payload + "." + s.sign(payload), claim, nil
}

// Verify checks the token signature and expiry and returns the claim.
func (s *SignedURLSigner) Verify(token string) (DownloadClaim, error) {
	claim, err := s.Decode(token)
	if err != nil {
		return DownloadClaim{}, err
	}
	if claim.Expired(time.Now()) {
		return DownloadClaim{}, fmt.Errorf("token expired")
	}
	return claim, nil
}

// Decode checks the token signature but not its expiry. Cleanup
// routines use it to resolve files behind stale tokens.
func (s *SignedURLSigner) Decode(token string) (DownloadClaim, error) {
	payload, signature, ok := strings.Cut(token, ".")
	if !ok {
		return DownloadClaim{}, fmt.Errorf("invalid token format")
	}
	if !hmac.Equal([]byte(s.sign(payload)), []byte(signature)) {
		return DownloadClaim{}, fmt.Errorf("invalid token signature")
	}

	raw, err := base64.RawURLEncoding.DecodeString(payload)
	if err != nil {
		return DownloadClaim{}, fmt.Errorf("decode token: %w", err)
	}
	fields := strings.SplitN(string(raw), "\n", 3)
	if len(fields) != 3 {
		return DownloadClaim{}, fmt.Errorf("invalid token payload")
	}
	expUnix, err := strconv.ParseInt(fields[1], 10, 64)
	if err != nil {
		return DownloadClaim{}, fmt.Errorf("invalid token timestamp")
	}

	return DownloadClaim{
		OwnerID:   fields[0],
		Path:      fields[2],
		ExpiresAt: time.Unix(expUnix, 0),
	}, nil
}

func (s *SignedURLSigner) sign(payload string) string {
	mac := hmac.New(sha256.New, s.secret)
	_, _ = mac.Write([]byte(payload))
	return hex.EncodeToString(mac.Sum(nil))
}
