package mockups_test

import (
	"errors"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"easel/internal/imaging"
	"easel/internal/mockups"
	"easel/internal/testsupport"
)

func writeTemplates(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "mockups.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write templates: %v", err)
	}
	return path
}

func writeBackground(t *testing.T, dir, name string, width, height int) {
	t.Helper()
	data := testsupport.PNGImage(t, width, height, color.RGBA{R: 200, G: 200, B: 200, A: 255})
	if err := os.WriteFile(filepath.Join(dir, name), data, 0o644); err != nil {
		t.Fatalf("write background: %v", err)
	}
}

func TestLoadWithoutTemplatesPathDefersError(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Mockups.TemplatesPath = ""

	builder, err := mockups.Load(cfg)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if builder.Count() != 0 {
		t.Fatalf("expected no templates, got %d", builder.Count())
	}
	if _, err := builder.Compose([]byte("png")); !errors.Is(err, mockups.ErrNoTemplates) {
		t.Fatalf("expected ErrNoTemplates, got %v", err)
	}
}

func TestLoadRejectsBadTemplates(t *testing.T) {
	cases := []struct {
		name    string
		content string
	}{
		{"missing name", `
[[mockups]]
background = "bg.png"
[mockups.placement]
x = 0
y = 0
width = 10
height = 10
`},
		{"missing background", `
[[mockups]]
name = "desk"
[mockups.placement]
x = 0
y = 0
width = 10
height = 10
`},
		{"empty placement", `
[[mockups]]
name = "desk"
background = "bg.png"
[mockups.placement]
x = 0
y = 0
width = 0
height = 10
`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := testsupport.NewConfig(t)
			cfg.Mockups.TemplatesPath = writeTemplates(t, t.TempDir(), tc.content)
			if _, err := mockups.Load(cfg); err == nil {
				t.Fatal("expected load error")
			}
		})
	}
}

func TestComposeRendersEveryTemplate(t *testing.T) {
	dir := t.TempDir()
	writeBackground(t, dir, "wall.png", 60, 40)
	writeBackground(t, dir, "desk.png", 80, 80)
	path := writeTemplates(t, dir, `
[[mockups]]
name = "wall"
background = "wall.png"
output = "wall-scene.jpg"
[mockups.placement]
x = 10
y = 5
width = 30
height = 20

[[mockups]]
name = "desk"
background = "desk.png"
[mockups.placement]
x = 20
y = 20
width = 40
height = 40
`)

	cfg := testsupport.NewConfig(t)
	cfg.Mockups.TemplatesPath = path
	builder, err := mockups.Load(cfg)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if builder.Count() != 2 {
		t.Fatalf("expected 2 templates, got %d", builder.Count())
	}

	product := testsupport.PNGImage(t, 100, 100, color.RGBA{R: 255, A: 255})
	rendered, err := builder.Compose(product)
	if err != nil {
		t.Fatalf("compose: %v", err)
	}
	if len(rendered) != 2 {
		t.Fatalf("expected 2 renders, got %d", len(rendered))
	}
	if rendered[0].Name != "wall-scene.jpg" {
		t.Fatalf("explicit output name not honored: %s", rendered[0].Name)
	}
	if rendered[1].Name != "desk.jpg" {
		t.Fatalf("default output name wrong: %s", rendered[1].Name)
	}

	// Each render is a JPEG with the background's dimensions; the placement
	// region carries the product's color.
	img, format, err := imaging.Decode(rendered[0].Data)
	if err != nil {
		t.Fatalf("decode render: %v", err)
	}
	if format != "jpeg" {
		t.Fatalf("expected jpeg render, got %s", format)
	}
	if img.Bounds().Dx() != 60 || img.Bounds().Dy() != 40 {
		t.Fatalf("render should match background size, got %v", img.Bounds())
	}
	r, _, _, _ := img.At(25, 15).RGBA()
	if r < 0xc000 {
		t.Fatalf("placement region should carry product color, got red %d", r)
	}
}

func TestComposeRejectsBadProduct(t *testing.T) {
	dir := t.TempDir()
	writeBackground(t, dir, "wall.png", 20, 20)
	path := writeTemplates(t, dir, `
[[mockups]]
name = "wall"
background = "wall.png"
[mockups.placement]
x = 0
y = 0
width = 10
height = 10
`)
	cfg := testsupport.NewConfig(t)
	cfg.Mockups.TemplatesPath = path
	builder, err := mockups.Load(cfg)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if _, err := builder.Compose([]byte("not an image")); err == nil {
		t.Fatal("expected compose error for undecodable product")
	}
}

func TestComposeReportsMissingBackground(t *testing.T) {
	dir := t.TempDir()
	path := writeTemplates(t, dir, `
[[mockups]]
name = "wall"
background = "missing.png"
[mockups.placement]
x = 0
y = 0
width = 10
height = 10
`)
	cfg := testsupport.NewConfig(t)
	cfg.Mockups.TemplatesPath = path
	builder, err := mockups.Load(cfg)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	product := testsupport.PNGImage(t, 10, 10, color.White)
	if _, err := builder.Compose(product); err == nil {
		t.Fatal("expected error for missing background file")
	}
}
