// Package artifacts assembles run outputs into a ZIP bundle and persists the
// bundle to object storage.
package artifacts

import (
	"archive/zip"
	"bytes"
	"fmt"
	"sort"
	"time"
)

// File is one entry destined for the archive.
type File struct {
	Name string
	Data []byte
}

// fixed timestamp so identical inputs produce identical archives
var archiveEpoch = time.Date(2020, time.January, 1, 0, 0, 0, 0, time.UTC)

// BuildArchive packs the manifest and files into a ZIP. Entries are written
// in name order, manifest.json first, so repeated runs over the same inputs
// are byte-for-byte reproducible.
func BuildArchive(manifest *Manifest, files []File) ([]byte, error) {
	names := make(map[string]struct{}, len(files)+1)
	names["manifest.json"] = struct{}{}
	for _, f := range files {
		if f.Name == "" {
			return nil, fmt.Errorf("archive entry with empty name")
		}
		if _, dup := names[f.Name]; dup {
			return nil, fmt.Errorf("duplicate archive entry %q", f.Name)
		}
		names[f.Name] = struct{}{}
	}

	manifest.Generated = make([]string, 0, len(files))
	for _, f := range files {
		manifest.Generated = append(manifest.Generated, f.Name)
	}
	sort.Strings(manifest.Generated)

	manifestData, err := manifest.encode()
	if err != nil {
		return nil, fmt.Errorf("encode manifest: %w", err)
	}

	sorted := make([]File, 0, len(files)+1)
	sorted = append(sorted, File{Name: "manifest.json", Data: manifestData})
	rest := append([]File(nil), files...)
	sort.Slice(rest, func(i, j int) bool { return rest[i].Name < rest[j].Name })
	sorted = append(sorted, rest...)

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, f := range sorted {
		hdr := &zip.FileHeader{
			Name:     f.Name,
			Method:   zip.Deflate,
			Modified: archiveEpoch,
		}
		w, err := zw.CreateHeader(hdr)
		if err != nil {
			return nil, fmt.Errorf("create archive entry %q: %w", f.Name, err)
		}
		if _, err := w.Write(f.Data); err != nil {
			return nil, fmt.Errorf("write archive entry %q: %w", f.Name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("finalize archive: %w", err)
	}
	return buf.Bytes(), nil
}
