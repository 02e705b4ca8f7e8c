// Package tables reads the companion tables that accompany a subcellular
// spatial dataset: cells, cell and nucleus boundaries, transcripts, the
// gene panel document and the summary metrics row.
//
// Each table may be stored as Parquet, gzip or zstd compressed CSV, or
// plain CSV. Find picks the first encoding present in a directory and
// ReadFrame decodes it into a column-ordered Frame; the typed readers
// (ReadCells, ReadBoundaries, ReadTranscripts, ReadMetrics) validate the
// columns they need on top of that.
//
// Boundary geometry is validated per polygon. A malformed row is reported
// through Polygon.Err rather than failing the whole table.
package tables
