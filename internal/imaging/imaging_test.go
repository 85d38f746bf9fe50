package imaging_test

import (
	"bytes"
	"encoding/binary"
	"image"
	"image/color"
	"image/jpeg"
	"testing"

	"easel/internal/imaging"
	"easel/internal/testsupport"
)

// findPhys locates the pHYs chunk in a PNG and returns its pixels-per-meter
// value, or -1 when no chunk is present.
func findPhys(t *testing.T, data []byte) int {
	t.Helper()
	offset := 8
	for offset+8 <= len(data) {
		length := int(binary.BigEndian.Uint32(data[offset : offset+4]))
		kind := string(data[offset+4 : offset+8])
		if kind == "pHYs" {
			return int(binary.BigEndian.Uint32(data[offset+8 : offset+12]))
		}
		if kind == "IDAT" {
			return -1
		}
		offset += 8 + length + 4
	}
	return -1
}

func TestToPNGWithDPIStampsPhys(t *testing.T) {
	src := testsupport.PNGImage(t, 10, 10, color.White)

	out, err := imaging.ToPNGWithDPI(src, 300)
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	// 300 dpi = 11811 pixels per meter.
	if ppm := findPhys(t, out); ppm != 11811 {
		t.Fatalf("expected 11811 ppm, got %d", ppm)
	}

	img, format, err := imaging.Decode(out)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if format != "png" {
		t.Fatalf("expected png, got %s", format)
	}
	if img.Bounds().Dx() != 10 || img.Bounds().Dy() != 10 {
		t.Fatalf("dimensions changed: %v", img.Bounds())
	}
}

func TestToPNGWithDPIConvertsJPEG(t *testing.T) {
	var buf bytes.Buffer
	src := image.NewRGBA(image.Rect(0, 0, 6, 4))
	if err := jpeg.Encode(&buf, src, nil); err != nil {
		t.Fatalf("encode jpeg: %v", err)
	}

	out, err := imaging.ToPNGWithDPI(buf.Bytes(), 72)
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	_, format, err := imaging.Decode(out)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if format != "png" {
		t.Fatalf("expected png output, got %s", format)
	}
}

func TestEncodePNGWithoutDPISkipsPhys(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	out, err := imaging.EncodePNGWithDPI(img, 0)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if ppm := findPhys(t, out); ppm != -1 {
		t.Fatalf("expected no pHYs chunk, found %d ppm", ppm)
	}
}

func TestCoverFitCoversTarget(t *testing.T) {
	// A wide source into a square target: scale by height, crop the sides.
	src := image.NewRGBA(image.Rect(0, 0, 200, 100))
	out := imaging.CoverFit(src, 100, 100)
	if out.Bounds().Dx() != 100 || out.Bounds().Dy() != 100 {
		t.Fatalf("unexpected output size %v", out.Bounds())
	}

	// A tall source into the same target.
	src = image.NewRGBA(image.Rect(0, 0, 50, 400))
	out = imaging.CoverFit(src, 100, 100)
	if out.Bounds().Dx() != 100 || out.Bounds().Dy() != 100 {
		t.Fatalf("unexpected output size %v", out.Bounds())
	}
}

func TestCoverFitCentersCrop(t *testing.T) {
	// Left half red, right half blue. Cover-fitting into a narrow target
	// must keep the middle, so both colors survive at the edges.
	src := image.NewRGBA(image.Rect(0, 0, 100, 50))
	for y := 0; y < 50; y++ {
		for x := 0; x < 100; x++ {
			if x < 50 {
				src.Set(x, y, color.RGBA{R: 255, A: 255})
			} else {
				src.Set(x, y, color.RGBA{B: 255, A: 255})
			}
		}
	}

	out := imaging.CoverFit(src, 20, 50)
	left := out.RGBAAt(1, 25)
	right := out.RGBAAt(18, 25)
	if left.R < 200 {
		t.Fatalf("expected red on the left edge, got %+v", left)
	}
	if right.B < 200 {
		t.Fatalf("expected blue on the right edge, got %+v", right)
	}
}

func TestEncodeJPEGFlattensAlpha(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	// fully transparent source
	out, err := imaging.EncodeJPEG(img, 90)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	decoded, format, err := imaging.Decode(out)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if format != "jpeg" {
		t.Fatalf("expected jpeg, got %s", format)
	}
	r, g, b, _ := decoded.At(4, 4).RGBA()
	if r > 0x0f00 || g > 0x0f00 || b > 0x0f00 {
		t.Fatalf("transparent pixels should flatten to black, got %d %d %d", r, g, b)
	}
}

func TestNormalizeForUploadKeepsPNGAndJPEG(t *testing.T) {
	src := testsupport.PNGImage(t, 4, 4, color.White)
	out, format, err := imaging.NormalizeForUpload(src)
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if format != "png" || !bytes.Equal(out, src) {
		t.Fatalf("png input must pass through untouched, format %s", format)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 4, 4)), nil); err != nil {
		t.Fatalf("encode jpeg: %v", err)
	}
	out, format, err = imaging.NormalizeForUpload(buf.Bytes())
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if format != "jpeg" || !bytes.Equal(out, buf.Bytes()) {
		t.Fatalf("jpeg input must pass through untouched, format %s", format)
	}
}

func TestDecodeRejectsGarbage(t *testing.T) {
	if _, _, err := imaging.Decode([]byte("not an image")); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestMIMEForFormat(t *testing.T) {
	cases := map[string]string{
		"png":  "image/png",
		"jpeg": "image/jpeg",
		"webp": "image/webp",
		"tiff": "application/octet-stream",
	}
	for format, want := range cases {
		if got := imaging.MIMEForFormat(format); got != want {
			t.Fatalf("MIMEForFormat(%q) = %q, want %q", format, got, want)
		}
	}
}
