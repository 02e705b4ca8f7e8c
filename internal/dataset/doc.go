// Package dataset presents heterogeneous spatial-biology image containers
// behind one Dataset interface and derives tissue masks from them.
//
// # Modalities
//
//   - Visium: an H&E bitmap plus a spatial metadata directory holding
//     scale factors and spot position tables.
//   - Xenium: a morphology OME-TIFF plus optional companion tables (cells,
//     cell and nucleus boundaries, transcripts, gene panel, metrics). The
//     dataset is Full tier when cells, boundaries and transcripts all load
//     and Minimal otherwise.
//   - PhenoCycler: a QPTIFF whose leading full-resolution pages are the
//     biomarker channels.
//   - OME-TIFF: any multi-page TIFF, one channel per page.
//
// # Opening
//
// Open runs the format resolver (DetectModality) and constructs the
// matching adapter. Metadata is parsed eagerly; pixel planes are decoded on
// first use and cached per channel. No file handle outlives a call.
//
// # Errors and Warnings
//
// Fatal problems wrap ErrNotFound, ErrUnsupportedFormat, ErrDecode or
// ErrDependencyMissing. Problems with secondary metadata never fail a
// call: they are logged and kept as Warning values wrapping
// ErrMetadataParse, available from Dataset.Warnings.
//
// # Masks
//
// GenerateMask resolves MethodAuto per modality (circle for Visium,
// intensity for PhenoCycler and OME-TIFF, a tier-keyed strategy table for
// Xenium) and caches results by the hash of the resolved options until
// ClearCache.
package dataset
