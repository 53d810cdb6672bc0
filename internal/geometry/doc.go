// Package geometry provides drift-tube detector surfaces and the
// local/global frame transforms used by segment reconstruction.
//
// Coordinates are in cm. Each layer and superlayer has a rigid Frame;
// measurements live in their layer's local frame, segments in their
// superlayer's. A Provider resolves ids to surfaces; Static is the
// in-memory implementation loaded from JSON and Cached adds a read-through
// LRU of relative frames.
package geometry
