// Package imaging provides the raster primitives used to build tissue masks.
//
// The package works on two representations: Plane, a numeric array of 8, 16
// or 32-bit samples as loaded from a dataset container, and *image.Gray, the
// 8-bit form every mask algorithm operates on. Plane.Gray bridges the two by
// normalizing the bit depth and converting color planes to luminance.
//
// # Coordinate System
//
// All pixel coordinates are 0-based with (0,0) at the top-left corner, X
// increasing rightward and Y increasing downward. Rasters returned by this
// package are anchored at the origin.
//
// # Masks
//
// A mask is an *image.Gray holding only Background (0) and Foreground (255).
// Binarize, Morphology, ContourFill, FillPolygon and FillDisk all produce or
// preserve that invariant. Transforms interpolate and may introduce
// intermediate values; IoU binarizes its inputs at the midpoint.
//
// # Numeric Conventions
//
//   - Fixed thresholds are strict: a pixel is foreground when v > t.
//   - Otsu scans levels upward and keeps the first maximum.
//   - Depth normalization is exact integer arithmetic (see Normalize).
//   - Morphology ignores pixels outside the image.
//   - Contour areas are polygon areas through pixel centres.
//
// # Thread Safety
//
// ImageCache is safe for concurrent use. All other functions are stateless
// and never modify their inputs.
package imaging
