// Package detection finds fiducial circles in slide images.
//
// DetectCircles implements the Hough gradient circle transform: edge pixels
// vote along their gradient direction for candidate centres, strong local
// maxima become centres, and each centre takes the radius most of the edge
// pixels agree on. The default build is pure Go. Building with the gocv tag
// hands the same search to OpenCV.
//
// # Post-filters
//
// FilterCirclesBySize and FilterCirclesByDistance are deterministic and
// never reorder their input. The distance filter is greedy: the first circle
// seen wins, regardless of votes.
//
// # Coordinate System
//
// Centres use the standard image convention with the origin at the top-left
// corner, X increasing rightward and Y increasing downward.
package detection
