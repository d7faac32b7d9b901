package models

import (
	"fmt"
	"strings"

	"github.com/vincent-petithory/dataurl"
)

const (
	MIMEPDF  = "application/pdf"
	MIMEJPEG = "image/jpeg"
	MIMEPNG  = "image/png"
	MIMEWebP = "image/webp"
	MIMEWAV  = "audio/wav"
)

var acceptedDocumentTypes = []string{MIMEPDF, MIMEJPEG, MIMEPNG, MIMEWebP}

// AcceptedDocumentTypes returns the MIME types an uploaded document may have.
func AcceptedDocumentTypes() []string {
	out := make([]string, len(acceptedDocumentTypes))
	copy(out, acceptedDocumentTypes)
	return out
}

func IsAcceptedDocumentType(mime string) bool {
	mime = normalizeMIME(mime)
	for _, t := range acceptedDocumentTypes {
		if t == mime {
			return true
		}
	}
	return false
}

func normalizeMIME(mime string) string {
	if i := strings.IndexByte(mime, ';'); i >= 0 {
		mime = mime[:i]
	}
	return strings.ToLower(strings.TrimSpace(mime))
}

// Document is an uploaded form. Its bytes never change once captured so the
// same content can be analyzed again under another language.
type Document struct {
	name string
	mime string
	data []byte
}

func NewDocument(name, mime string, data []byte) (*Document, error) {
	mime = normalizeMIME(mime)
	if !IsAcceptedDocumentType(mime) {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFileType, mime)
	}
	if len(data) == 0 {
		return nil, &EncodingError{Name: name, Err: fmt.Errorf("document is empty")}
	}
	buf := make([]byte, len(data))
	copy(buf, data)
	return &Document{name: name, mime: mime, data: buf}, nil
}

func (d *Document) Name() string { return d.name }
func (d *Document) MIME() string { return d.mime }
func (d *Document) Size() int    { return len(d.data) }

// Bytes returns a copy of the content.
func (d *Document) Bytes() []byte {
	buf := make([]byte, len(d.data))
	copy(buf, d.data)
	return buf
}

// DataURI renders the document as data:<mime>;base64,<payload>.
func (d *Document) DataURI() string {
	return dataurl.New(d.data, d.mime).String()
}

// Blob is a decoded self-describing payload, e.g. synthesized speech.
type Blob struct {
	MIME string
	Data []byte
}

// ParseDataURI decodes a data URI into a Blob.
func ParseDataURI(uri string) (*Blob, error) {
	du, err := dataurl.DecodeString(uri)
	if err != nil {
		return nil, fmt.Errorf("decode data uri: %w", err)
	}
	return &Blob{MIME: du.MediaType.ContentType(), Data: du.Data}, nil
}

// DataURI renders the blob back into its self-describing form.
func (b *Blob) DataURI() string {
	mime := normalizeMIME(b.MIME)
	if strings.Count(mime, "/") != 1 {
		mime = "application/octet-stream"
	}
	return dataurl.New(b.Data, mime).String()
}
