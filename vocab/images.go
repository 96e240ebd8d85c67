package vocab

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

var allowedImageTypes = []string{"image/jpeg", "image/png", "image/gif", "image/webp"}

// AllowedImageTypes lists the accepted declared image MIME types.
func AllowedImageTypes() []string {
	return append([]string{}, allowedImageTypes...)
}

// IsAllowedImageType reports whether a declared MIME type is accepted.
func IsAllowedImageType(contentType string) bool {
	mediaType := normalizeMediaType(contentType)
	for _, allowed := range allowedImageTypes {
		if mediaType == allowed {
			return true
		}
	}
	return false
}

func normalizeMediaType(contentType string) string {
	contentType = strings.TrimSpace(contentType)
	if contentType == "" {
		return ""
	}
	if parsed, _, err := mime.ParseMediaType(contentType); err == nil {
		return parsed
	}
	return strings.ToLower(contentType)
}

// ImageFile is an uploaded image with its declared MIME type.
type ImageFile struct {
	Name        string
	ContentType string
	Open        func() (io.ReadCloser, error)
}

// BytesImage creates an ImageFile backed by an in-memory payload.
func BytesImage(name, contentType string, data []byte) ImageFile {
	return ImageFile{
		Name:        name,
		ContentType: contentType,
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(data)), nil
		},
	}
}

// PathImage creates an ImageFile for a file on disk, declaring its type from the extension.
func PathImage(path string) ImageFile {
	return ImageFile{
		Name:        filepath.Base(path),
		ContentType: mime.TypeByExtension(strings.ToLower(filepath.Ext(path))),
		Open: func() (io.ReadCloser, error) {
			return os.Open(path)
		},
	}
}

// ImageResult is the completion event of a single image decode.
type ImageResult struct {
	Name  string
	Image Image
	Err   error
}

// ImageBatch tracks the independent decodes started by one upload.
type ImageBatch struct {
	rejected []error
	accepted int

	wg      sync.WaitGroup
	mu      sync.Mutex
	results []ImageResult
}

// Rejected returns the validation errors reported for the batch.
func (b *ImageBatch) Rejected() []error {
	if b == nil {
		return nil
	}
	return append([]error{}, b.rejected...)
}

// Accepted returns the number of files that passed type validation.
func (b *ImageBatch) Accepted() int {
	if b == nil {
		return 0
	}
	return b.accepted
}

// Wait blocks until every decode completes and returns results in completion order.
func (b *ImageBatch) Wait() []ImageResult {
	if b == nil {
		return nil
	}
	b.wg.Wait()
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]ImageResult{}, b.results...)
}

func (b *ImageBatch) complete(res ImageResult) {
	b.mu.Lock()
	b.results = append(b.results, res)
	b.mu.Unlock()
}

func validateImageFile(file ImageFile) error {
	if !IsAllowedImageType(file.ContentType) {
		declared := file.ContentType
		if declared == "" {
			declared = "unknown"
		}
		return NewError(KindValidation, fmt.Sprintf("only image files are allowed: %s (%s)", displayName(file.Name), declared), nil)
	}
	if file.Open == nil {
		return NewError(KindValidation, fmt.Sprintf("image %s has no payload", displayName(file.Name)), nil)
	}
	return nil
}

func decodeImage(ctx context.Context, file ImageFile) (Image, error) {
	if err := ctx.Err(); err != nil {
		return Image{}, err
	}
	rc, err := file.Open()
	if err != nil {
		return Image{}, NewError(KindInternal, fmt.Sprintf("open image %s", displayName(file.Name)), err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return Image{}, NewError(KindInternal, fmt.Sprintf("read image %s", displayName(file.Name)), err)
	}

	mediaType := normalizeMediaType(file.ContentType)
	return Image{
		Name:        file.Name,
		ContentType: mediaType,
		DataURI:     EncodeDataURI(mediaType, data),
		Size:        int64(len(data)),
	}, nil
}

// EncodeDataURI encodes a payload as a base64 data URI.
func EncodeDataURI(mediaType string, data []byte) string {
	return "data:" + mediaType + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// DecodeDataURI returns the media type and payload of a base64 data URI.
func DecodeDataURI(uri string) (string, []byte, error) {
	rest, ok := strings.CutPrefix(uri, "data:")
	if !ok {
		return "", nil, NewError(KindValidation, "not a data URI", nil)
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return "", nil, NewError(KindValidation, "malformed data URI", nil)
	}
	mediaType, encoding, _ := strings.Cut(meta, ";")
	if encoding != "base64" {
		return "", nil, NewError(KindValidation, "data URI must be base64 encoded", nil)
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, NewError(KindValidation, "invalid data URI payload", err)
	}
	return mediaType, data, nil
}

func displayName(name string) string {
	if strings.TrimSpace(name) == "" {
		return "<unnamed>"
	}
	return name
}
