// Package mockups composes the submitted artwork into staged scene templates
// (framed walls, desks, and similar backdrops) defined in a TOML file.
package mockups

import (
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	xdraw "golang.org/x/image/draw"

	"easel/internal/config"
	"easel/internal/imaging"
)

// ErrNoTemplates reports that mockup composition was requested without any
// configured templates.
var ErrNoTemplates = errors.New("no mockup templates configured")

// Placement is the rectangle a product image is fitted into, in background
// pixel coordinates.
type Placement struct {
	X      int `toml:"x"`
	Y      int `toml:"y"`
	Width  int `toml:"width"`
	Height int `toml:"height"`
}

// Template describes one mockup scene.
type Template struct {
	Name       string    `toml:"name"`
	Background string    `toml:"background"`
	Overlay    string    `toml:"overlay"`
	Output     string    `toml:"output"`
	Placement  Placement `toml:"placement"`
}

type templatesFile struct {
	Mockups []Template `toml:"mockups"`
}

// Rendered is one composed mockup ready for packaging.
type Rendered struct {
	Name string
	Data []byte
}

// Builder composes mockups from a loaded template set.
type Builder struct {
	templates []Template
	baseDir   string
	quality   int
}

// Load reads the template file referenced by the configuration. A missing
// templates_path yields a Builder that fails with ErrNoTemplates on use, so
// the error surfaces on the run that asked for mockups rather than at boot.
func Load(cfg *config.Config) (*Builder, error) {
	path := strings.TrimSpace(cfg.Mockups.TemplatesPath)
	if path == "" {
		return &Builder{quality: cfg.Mockups.JPEGQuality}, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read mockup templates: %w", err)
	}
	var parsed templatesFile
	if err := toml.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("parse mockup templates: %w", err)
	}
	for i, tpl := range parsed.Mockups {
		if strings.TrimSpace(tpl.Name) == "" {
			return nil, fmt.Errorf("mockup template %d has no name", i)
		}
		if strings.TrimSpace(tpl.Background) == "" {
			return nil, fmt.Errorf("mockup template %q has no background", tpl.Name)
		}
		if tpl.Placement.Width <= 0 || tpl.Placement.Height <= 0 {
			return nil, fmt.Errorf("mockup template %q has an empty placement", tpl.Name)
		}
	}

	return &Builder{
		templates: parsed.Mockups,
		baseDir:   filepath.Dir(path),
		quality:   cfg.Mockups.JPEGQuality,
	}, nil
}

// Count reports the number of loaded templates.
func (b *Builder) Count() int {
	return len(b.templates)
}

// Compose renders the product image into every template.
func (b *Builder) Compose(product []byte) ([]Rendered, error) {
	if len(b.templates) == 0 {
		return nil, ErrNoTemplates
	}
	productImg, _, err := imaging.Decode(product)
	if err != nil {
		return nil, fmt.Errorf("decode product image: %w", err)
	}

	out := make([]Rendered, 0, len(b.templates))
	for _, tpl := range b.templates {
		rendered, err := b.composeOne(tpl, productImg)
		if err != nil {
			return nil, fmt.Errorf("mockup %q: %w", tpl.Name, err)
		}
		out = append(out, rendered)
	}
	return out, nil
}

func (b *Builder) composeOne(tpl Template, product image.Image) (Rendered, error) {
	background, err := b.loadImage(tpl.Background)
	if err != nil {
		return Rendered{}, err
	}

	bounds := background.Bounds()
	canvas := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	xdraw.Draw(canvas, canvas.Bounds(), background, bounds.Min, xdraw.Src)

	fitted := imaging.CoverFit(product, tpl.Placement.Width, tpl.Placement.Height)
	target := image.Rect(
		tpl.Placement.X,
		tpl.Placement.Y,
		tpl.Placement.X+tpl.Placement.Width,
		tpl.Placement.Y+tpl.Placement.Height,
	)
	xdraw.Draw(canvas, target, fitted, image.Point{}, xdraw.Over)

	if strings.TrimSpace(tpl.Overlay) != "" {
		overlay, err := b.loadImage(tpl.Overlay)
		if err != nil {
			return Rendered{}, err
		}
		xdraw.Draw(canvas, canvas.Bounds(), overlay, overlay.Bounds().Min, xdraw.Over)
	}

	encoded, err := imaging.EncodeJPEG(canvas, b.quality)
	if err != nil {
		return Rendered{}, err
	}

	name := strings.TrimSpace(tpl.Output)
	if name == "" {
		name = tpl.Name + ".jpg"
	}
	return Rendered{Name: filepath.Base(name), Data: encoded}, nil
}

func (b *Builder) loadImage(path string) (image.Image, error) {
	if !filepath.IsAbs(path) {
		path = filepath.Join(b.baseDir, path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}
	img, _, err := imaging.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}
	return img, nil
}
