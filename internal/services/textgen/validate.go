package textgen

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

const (
	titleMinChars  = 130
	titleMaxChars  = 140
	altSEOMinChars = 400
	altSEOMaxChars = 500
	tagCount       = 13
	tagMaxChars    = 20
)

type fields struct {
	Title  string
	Intro  string
	Love   string
	AltSEO string
	Tags   string
}

// validate checks the model output against the listing constraints and
// returns correction hints for the retry prompt. Character counts are taken
// over NFC-normalized code points so composed and decomposed accents measure
// the same.
func validate(f fields) []string {
	var errs []string

	if n := charCount(f.Title); n < titleMinChars || n > titleMaxChars {
		errs = append(errs, fmt.Sprintf("title length must be %d-%d, got %d", titleMinChars, titleMaxChars, n))
	}
	if strings.TrimSpace(f.Intro) == "" {
		errs = append(errs, "intro is empty")
	}
	if strings.TrimSpace(f.Love) == "" {
		errs = append(errs, "love is empty")
	}
	if n := charCount(f.AltSEO); n < altSEOMinChars || n > altSEOMaxChars {
		errs = append(errs, fmt.Sprintf("alt_seo length must be %d-%d, got %d", altSEOMinChars, altSEOMaxChars, n))
	}
	if strings.ContainsAny(f.AltSEO, "\n\r") {
		errs = append(errs, "alt_seo must be one paragraph (no line breaks)")
	}

	tags := splitTags(f.Tags)
	if len(tags) != tagCount {
		errs = append(errs, fmt.Sprintf("tags must contain exactly %d tags, got %d", tagCount, len(tags)))
	}
	seen := make(map[string]struct{}, len(tags))
	duplicates := false
	for _, tag := range tags {
		lowered := strings.ToLower(tag)
		if _, dup := seen[lowered]; dup {
			duplicates = true
		}
		seen[lowered] = struct{}{}
		if charCount(tag) > tagMaxChars {
			errs = append(errs, fmt.Sprintf("tag %q exceeds %d characters", tag, tagMaxChars))
		}
		if tag != lowered {
			errs = append(errs, fmt.Sprintf("tag %q must be lowercase", tag))
		}
	}
	if duplicates {
		errs = append(errs, "tags contain duplicates")
	}

	return errs
}

func splitTags(raw string) []string {
	parts := strings.Split(raw, ",")
	tags := make([]string, 0, len(parts))
	for _, part := range parts {
		if tag := strings.TrimSpace(part); tag != "" {
			tags = append(tags, tag)
		}
	}
	return tags
}

func charCount(s string) int {
	return utf8.RuneCountInString(norm.NFC.String(s))
}
