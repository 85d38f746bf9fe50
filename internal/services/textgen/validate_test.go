package textgen

import (
	"strings"
	"testing"
)

func validFields() fields {
	return fields{
		Title:  strings.Repeat("Wall Art Print ", 9),
		Intro:  "A vibrant botanical print.",
		Love:   "the colors",
		AltSEO: strings.Repeat("Botanical wall art print for modern home decor. ", 10)[:450],
		Tags:   "wall art, print, botanical, decor, poster, home, gift, modern, floral, green, nature, plants, bedroom",
	}
}

func TestValidateAcceptsWellFormedFields(t *testing.T) {
	if errs := validate(validFields()); len(errs) != 0 {
		t.Fatalf("unexpected validation errors: %v", errs)
	}
}

func TestValidateTitleBounds(t *testing.T) {
	f := validFields()
	f.Title = "short"
	if errs := validate(f); len(errs) == 0 {
		t.Fatal("expected short title to fail")
	}
	f.Title = strings.Repeat("x", 141)
	if errs := validate(f); len(errs) == 0 {
		t.Fatal("expected long title to fail")
	}
	f.Title = strings.Repeat("x", 130)
	if errs := validate(f); len(errs) != 0 {
		t.Fatalf("130 chars is within bounds: %v", errs)
	}
}

func TestValidateAltSEORules(t *testing.T) {
	f := validFields()
	f.AltSEO = strings.Repeat("x", 399)
	if errs := validate(f); len(errs) == 0 {
		t.Fatal("expected short alt_seo to fail")
	}
	f.AltSEO = strings.Repeat("x", 200) + "\n" + strings.Repeat("x", 250)
	if errs := validate(f); len(errs) == 0 {
		t.Fatal("expected line break in alt_seo to fail")
	}
}

func TestValidateTagRules(t *testing.T) {
	f := validFields()
	f.Tags = "one, two, three"
	if errs := validate(f); len(errs) == 0 {
		t.Fatal("expected wrong tag count to fail")
	}

	f = validFields()
	f.Tags = strings.Replace(f.Tags, "bedroom", "print", 1)
	if errs := validate(f); len(errs) == 0 {
		t.Fatal("expected duplicate tags to fail")
	}

	f = validFields()
	f.Tags = strings.Replace(f.Tags, "bedroom", "Bedroom", 1)
	if errs := validate(f); len(errs) == 0 {
		t.Fatal("expected uppercase tag to fail")
	}

	f = validFields()
	f.Tags = strings.Replace(f.Tags, "bedroom", strings.Repeat("y", 21), 1)
	if errs := validate(f); len(errs) == 0 {
		t.Fatal("expected overlong tag to fail")
	}
}

func TestCharCountNormalizesAccents(t *testing.T) {
	// e + combining acute composes to a single character.
	if got := charCount("caf" + "é"); got != 4 {
		t.Fatalf("expected NFC count 4, got %d", got)
	}
}

func TestSplitTagsTrimsAndDropsEmpties(t *testing.T) {
	tags := splitTags(" a , b ,, c ,")
	if len(tags) != 3 || tags[0] != "a" || tags[2] != "c" {
		t.Fatalf("unexpected split %v", tags)
	}
}

func TestParsePayloadToleratesFence(t *testing.T) {
	raw := "```json\n{\"title\":\"t\",\"tags\":\"a,b\"}\n```"
	parsed, err := parsePayload(raw)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if parsed.Title != "t" || parsed.Tags != "a,b" {
		t.Fatalf("unexpected parse %+v", parsed)
	}
}

func TestParsePayloadRejectsProse(t *testing.T) {
	if _, err := parsePayload("Sure, here is your listing:"); err == nil {
		t.Fatal("expected parse error for prose output")
	}
}
