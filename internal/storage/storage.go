package storage

import (
	"context"
	"fmt"
	"io"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	DirPaymentProofs    = "payment_proofs"
	DirUserPhotos       = "user_photos"
	DirUserCertificates = "user_certificates"
)

// FileStore persists uploaded files and hands back an opaque reference.
// Delete is best-effort and never returns an error; false means the file could not be removed.
type FileStore interface {
	Store(ctx context.Context, r io.Reader, dir, filename string) (string, error)
	Delete(ctx context.Context, ref string) bool
	Exists(ref string) bool
	URL(ref string) string
}

// ProofDir is the directory holding the payment proofs of one transaction.
func ProofDir(transactionID int64) string {
	return fmt.Sprintf("%s/%d", DirPaymentProofs, transactionID)
}

var imageExtensions = map[string]bool{".jpg": true, ".jpeg": true, ".png": true}

// InDir reports whether ref names an image file directly under dir.
func InDir(ref, dir string) bool {
	if ref == "" || path.Clean(ref) != ref {
		return false
	}
	if path.Dir(ref) != dir {
		return false
	}
	return imageExtensions[strings.ToLower(path.Ext(ref))]
}

var unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9.\-_]+`)

func sanitizeFilename(filename string) string {
	safe := unsafeChars.ReplaceAllString(filename, "_")
	if len(safe) > 64 {
		safe = safe[len(safe)-64:]
	}
	if safe == "" {
		safe = "file"
	}
	return safe
}

// GenerateUniqueFilename builds "<dir>/<YYYYMMDD>-<uuid>-<sanitized name>".
func GenerateUniqueFilename(dir, originalFilename string, now time.Time) string {
	return fmt.Sprintf("%s/%s-%s-%s", dir, now.Format("20060102"), uuid.New().String(), sanitizeFilename(originalFilename))
}
