package imaging

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"image"
	"image/jpeg"
	"image/png"
	"math"

	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

// Decode parses image bytes and reports the detected format name
// ("png", "jpeg", "webp", ...).
func Decode(data []byte) (image.Image, string, error) {
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("decode image: %w", err)
	}
	return img, format, nil
}

// MIMEForFormat maps an image format name onto its media type.
func MIMEForFormat(format string) string {
	switch format {
	case "png":
		return "image/png"
	case "jpeg":
		return "image/jpeg"
	case "webp":
		return "image/webp"
	default:
		return "application/octet-stream"
	}
}

// ToPNGWithDPI re-encodes any supported image as PNG carrying explicit DPI
// metadata, so downstream print tooling sees the intended physical size.
func ToPNGWithDPI(data []byte, dpi int) ([]byte, error) {
	img, _, err := Decode(data)
	if err != nil {
		return nil, err
	}
	return EncodePNGWithDPI(img, dpi)
}

// EncodePNGWithDPI encodes img as PNG and stamps a pHYs chunk for the given
// DPI.
func EncodePNGWithDPI(img image.Image, dpi int) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	if dpi <= 0 {
		return buf.Bytes(), nil
	}
	return insertPhys(buf.Bytes(), dpi)
}

// insertPhys splices a pHYs chunk ahead of the first IDAT chunk. The encoder
// in image/png never writes one itself.
func insertPhys(data []byte, dpi int) ([]byte, error) {
	const signatureLen = 8
	if len(data) < signatureLen {
		return nil, errors.New("png too short")
	}

	// Pixels per meter, rounded; 1 inch = 0.0254 m.
	ppm := uint32(math.Round(float64(dpi) / 0.0254))

	chunk := make([]byte, 21)
	binary.BigEndian.PutUint32(chunk[0:4], 9)
	copy(chunk[4:8], "pHYs")
	binary.BigEndian.PutUint32(chunk[8:12], ppm)
	binary.BigEndian.PutUint32(chunk[12:16], ppm)
	chunk[16] = 1 // unit: meter
	crc := crc32.ChecksumIEEE(chunk[4:17])
	binary.BigEndian.PutUint32(chunk[17:21], crc)

	offset := signatureLen
	for offset+8 <= len(data) {
		length := int(binary.BigEndian.Uint32(data[offset : offset+4]))
		kind := string(data[offset+4 : offset+8])
		if kind == "IDAT" {
			out := make([]byte, 0, len(data)+len(chunk))
			out = append(out, data[:offset]...)
			out = append(out, chunk...)
			out = append(out, data[offset:]...)
			return out, nil
		}
		offset += 8 + length + 4
	}
	return nil, errors.New("png missing IDAT chunk")
}

// CoverFit scales src to completely cover a target rectangle and center-crops
// the overflow, preserving aspect ratio.
func CoverFit(src image.Image, width, height int) *image.RGBA {
	bounds := src.Bounds()
	srcW := bounds.Dx()
	srcH := bounds.Dy()
	scale := math.Max(float64(width)/float64(srcW), float64(height)/float64(srcH))
	scaledW := int(math.Ceil(float64(srcW) * scale))
	scaledH := int(math.Ceil(float64(srcH) * scale))

	scaled := image.NewRGBA(image.Rect(0, 0, scaledW, scaledH))
	xdraw.CatmullRom.Scale(scaled, scaled.Bounds(), src, bounds, xdraw.Over, nil)

	left := (scaledW - width) / 2
	top := (scaledH - height) / 2
	out := image.NewRGBA(image.Rect(0, 0, width, height))
	xdraw.Copy(out, image.Point{}, scaled, image.Rect(left, top, left+width, top+height), xdraw.Src, nil)
	return out
}

// FlattenOnBlack composites img over an opaque black background, dropping any
// alpha so JPEG output has no transparency artifacts.
func FlattenOnBlack(img image.Image) *image.RGBA {
	bounds := img.Bounds()
	out := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	xdraw.Draw(out, out.Bounds(), image.Black, image.Point{}, xdraw.Src)
	xdraw.Draw(out, out.Bounds(), img, bounds.Min, xdraw.Over)
	return out
}

// EncodeJPEG encodes img with the given quality, flattening alpha first.
func EncodeJPEG(img image.Image, quality int) ([]byte, error) {
	if quality <= 0 || quality > 100 {
		quality = jpeg.DefaultQuality
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, FlattenOnBlack(img), &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}

// NormalizeForUpload converts formats the upscaler rejects (anything but PNG
// and JPEG) into PNG, returning the possibly re-encoded bytes together with
// the resulting format name.
func NormalizeForUpload(data []byte) ([]byte, string, error) {
	img, format, err := Decode(data)
	if err != nil {
		return nil, "", err
	}
	switch format {
	case "png", "jpeg":
		return data, format, nil
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, "", fmt.Errorf("normalize to png: %w", err)
	}
	return buf.Bytes(), "png", nil
}
