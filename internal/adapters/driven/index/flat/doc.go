// Package flat provides the on-disk session index: a brute-force cosine
// similarity structure with a JSON metadata sidecar, persisted per
// session as a matched file pair.
//
// Exhaustive search is exact and fast enough for per-session corpora
// (thousands of chunks); it avoids the build/tune cost of approximate
// structures and keeps persistence a straight serialisation.
package flat
