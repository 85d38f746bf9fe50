// Package imaging holds the image plumbing shared by pipeline steps:
// decoding, PNG re-encoding with explicit DPI metadata, alpha flattening for
// JPEG output, and cover-fit scaling for mockup composition.
package imaging
