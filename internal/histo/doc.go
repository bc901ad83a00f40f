// Package histo accumulates weighted counts into sparse multi-dimensional
// histograms.
//
// A Sparse histogram only stores cells that were filled, so the large
// (category, multiplicity, pT, mass) grids of the resonance analysis cost
// memory proportional to the number of distinct cells hit. Histograms are
// grouped in a Registry, which can be merged with another registry built by
// a different worker. Projections convert to go-hep hbook histograms for
// plotting.
package histo
