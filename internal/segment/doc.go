// Package segment reconstructs straight track segments in a drift-tube
// superlayer.
//
// A Candidate holds hits on distinct layers. The Updater fits a line to the
// hits in the superlayer frame (FitLine), recomputes each hit position with
// a DriftModel given the segment's incidence angle and, optionally, its
// predicted position on the layer (Refiner), and fits again. Results are
// committed onto the candidate only after the whole schedule succeeds.
//
// Candidates are independent; Batch processes many of them concurrently.
package segment
