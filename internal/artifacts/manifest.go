package artifacts

import "encoding/json"

// Texts holds the generated marketplace listing copy.
type Texts struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	AltSEO      string   `json:"alt_seo"`
	Tags        []string `json:"tags"`
}

// Manifest describes the contents of a produced archive. It is written to
// manifest.json at the archive root so consumers can inspect a bundle without
// unpacking every entry.
type Manifest struct {
	RunID        string   `json:"run_id"`
	DPI          int      `json:"dpi"`
	Enhance      bool     `json:"enhance"`
	Upscale      int      `json:"upscale"`
	Mockups      bool     `json:"mockups"`
	Video        bool     `json:"video"`
	Texts        bool     `json:"texts"`
	ListingTexts *Texts   `json:"listing_texts,omitempty"`
	Generated    []string `json:"generated"`
}

func (m *Manifest) encode() ([]byte, error) {
	return json.MarshalIndent(m, "", "  ")
}
