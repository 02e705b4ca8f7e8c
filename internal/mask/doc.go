// Package mask turns image planes into binary tissue masks.
//
// Five strategies are available. Contour, intensity, adaptive and circle
// work from a single plane and are run by Generate. Polygon rasterizes cell
// boundaries and auto picks a strategy from what a dataset has loaded, so
// both are resolved by the dataset adapters, which then call Polygons or
// Generate.
//
// Options carries every tunable with defaults from the configuration. Its
// Key is a stable hash of the resolved values and is what datasets cache
// masks under.
package mask
