package vocab

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestIsAllowedImageType(t *testing.T) {
	for _, ct := range []string{"image/jpeg", "image/png", "image/gif", "image/webp", "IMAGE/PNG", "image/png; charset=binary"} {
		if !IsAllowedImageType(ct) {
			t.Fatalf("expected %q to be allowed", ct)
		}
	}
	for _, ct := range []string{"", "text/plain", "image/svg+xml", "application/pdf"} {
		if IsAllowedImageType(ct) {
			t.Fatalf("expected %q to be rejected", ct)
		}
	}
}

func TestDataURIRoundTrip(t *testing.T) {
	uri := EncodeDataURI("image/png", []byte{0x89, 'P', 'N', 'G'})
	if !strings.HasPrefix(uri, "data:image/png;base64,") {
		t.Fatalf("unexpected uri %q", uri)
	}
	mediaType, data, err := DecodeDataURI(uri)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if mediaType != "image/png" || string(data) != "\x89PNG" {
		t.Fatalf("unexpected decode result %q %q", mediaType, data)
	}

	for _, bad := range []string{"image/png;base64,AA", "data:image/png;base64", "data:image/png,plain"} {
		if _, _, err := DecodeDataURI(bad); !IsKind(err, KindValidation) {
			t.Fatalf("DecodeDataURI(%q): expected validation error, got %v", bad, err)
		}
	}
}

func TestPathImage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "Cat.PNG")
	if err := os.WriteFile(path, []byte("png"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	file := PathImage(path)
	if file.Name != "Cat.PNG" || file.ContentType != "image/png" {
		t.Fatalf("unexpected image file %+v", file)
	}

	img, err := decodeImage(context.Background(), file)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if img.Size != 3 || img.DataURI != EncodeDataURI("image/png", []byte("png")) {
		t.Fatalf("unexpected image %+v", img)
	}
}

func TestDecodeImage_OpenError(t *testing.T) {
	file := ImageFile{
		Name:        "gone.png",
		ContentType: "image/png",
		Open: func() (io.ReadCloser, error) {
			return nil, errors.New("gone")
		},
	}
	if _, err := decodeImage(context.Background(), file); err == nil || !strings.Contains(err.Error(), "gone.png") {
		t.Fatalf("expected error naming the file, got %v", err)
	}
}

func TestValidateImageFile(t *testing.T) {
	err := validateImageFile(BytesImage("notes.txt", "text/plain", []byte("hi")))
	if !IsKind(err, KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if !strings.Contains(err.Error(), "notes.txt") || !strings.Contains(err.Error(), "text/plain") {
		t.Fatalf("expected message to name file and type, got %q", err.Error())
	}
	if err := validateImageFile(ImageFile{Name: "x.png", ContentType: "image/png"}); !IsKind(err, KindValidation) {
		t.Fatalf("expected validation error for missing payload, got %v", err)
	}
}
