// Package tiff reads the page directory of classic TIFF containers and
// decodes individual pages into imaging.Plane values.
//
// Open parses every IFD up front (dimensions, sample layout, compression,
// ImageDescription and resolution tags) without decoding pixel data, which
// is enough to report channel counts and metadata for large multi-page
// scans. File.ReadPage decodes one page on demand.
//
// BigTIFF, signed or floating-point samples and JPEG-compressed pages are
// reported with ErrUnsupported. Structurally broken files yield ErrFormat.
//
// Write produces uncompressed little-endian multi-page files and is used to
// export masks.
package tiff
