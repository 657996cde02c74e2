package media

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"testing"
)

func pngBytes(t *testing.T, width, height int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, width, height))); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func TestProcessPassesThroughSmallPhotos(t *testing.T) {
	data := pngBytes(t, 200, 300)
	p := NewFFMPEGProcessor("", 1024)

	result, err := p.Process(context.Background(), Photo{
		Reader:      bytes.NewReader(data),
		Size:        int64(len(data)),
		ContentType: "image/png",
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if result.Resized {
		t.Fatal("a photo within bounds must not be resized")
	}
	if !bytes.Equal(result.Bytes, data) {
		t.Fatal("pass-through must not alter the bytes")
	}
	if result.ContentType != "image/png" {
		t.Fatalf("unexpected content type %q", result.ContentType)
	}
}

func TestProcessNormalizesJPEGAlias(t *testing.T) {
	// image/jpg is not a registered type but shows up in uploads.
	data := pngBytes(t, 10, 10)
	p := NewFFMPEGProcessor("", 1024)

	result, err := p.Process(context.Background(), Photo{
		Reader:      bytes.NewReader(data),
		Size:        int64(len(data)),
		ContentType: "image/jpg",
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if result.ContentType != "image/jpeg" {
		t.Fatalf("expected image/jpeg, got %q", result.ContentType)
	}
}

func TestProcessRejectsNonImageData(t *testing.T) {
	p := NewFFMPEGProcessor("", 1024)
	_, err := p.Process(context.Background(), Photo{
		Reader:      bytes.NewReader([]byte("not an image")),
		ContentType: "image/png",
	})
	if err == nil {
		t.Fatal("expected an error for undecodable data")
	}
}

func TestScaleToFit(t *testing.T) {
	cases := []struct {
		w, h, max    int
		wantW, wantH int
	}{
		{w: 4000, h: 2000, max: 1000, wantW: 1000, wantH: 500},
		{w: 2000, h: 4000, max: 1000, wantW: 500, wantH: 1000},
		{w: 3000, h: 3000, max: 1024, wantW: 1024, wantH: 1024},
		{w: 5000, h: 3, max: 1000, wantW: 1000, wantH: 2},
	}
	for _, tc := range cases {
		gotW, gotH := scaleToFit(tc.w, tc.h, tc.max)
		if gotW != tc.wantW || gotH != tc.wantH {
			t.Fatalf("scaleToFit(%d, %d, %d) = (%d, %d), want (%d, %d)", tc.w, tc.h, tc.max, gotW, gotH, tc.wantW, tc.wantH)
		}
	}
}
