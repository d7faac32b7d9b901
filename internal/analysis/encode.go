package analysis

import (
	"errors"
	"fmt"
	"io"

	"github.com/gabriel-vasile/mimetype"

	"sahaj/internal/models"
)

// DefaultMaxUpload bounds a document when no limit is configured.
const DefaultMaxUpload = 10 << 20

var ErrTooLarge = errors.New("document exceeds upload limit")

// Upload is a raw file as received from the user.
type Upload struct {
	Name string
	// DeclaredType is the MIME type the client claimed for the file.
	DeclaredType string
	Reader       io.Reader
}

// CheckType decides the document type before any bytes are read: a declared
// type outside the accepted set is rejected up front.
func CheckType(declared string) error {
	if declared == "" || declared == "application/octet-stream" {
		return nil
	}
	if !models.IsAcceptedDocumentType(declared) {
		return fmt.Errorf("%w: %s", models.ErrUnsupportedFileType, declared)
	}
	return nil
}

// Encode reads an upload into a Document. The MIME type is sniffed from the
// content and falls back to the declared type. Read failures are returned as
// *models.EncodingError.
func Encode(u Upload, limit int64) (*models.Document, error) {
	if limit <= 0 {
		limit = DefaultMaxUpload
	}
	if u.Reader == nil {
		return nil, &models.EncodingError{Name: u.Name, Err: errors.New("no content")}
	}
	data, err := io.ReadAll(io.LimitReader(u.Reader, limit+1))
	if err != nil {
		return nil, &models.EncodingError{Name: u.Name, Err: err}
	}
	if int64(len(data)) > limit {
		return nil, &models.EncodingError{Name: u.Name, Err: ErrTooLarge}
	}

	return models.NewDocument(u.Name, sniff(data, u.DeclaredType), data)
}

func sniff(data []byte, declared string) string {
	detected := mimetype.Detect(data)
	for m := detected; m != nil; m = m.Parent() {
		if models.IsAcceptedDocumentType(m.String()) {
			return m.String()
		}
	}
	if detected.Is("application/octet-stream") && declared != "" {
		return declared
	}
	return detected.String()
}
