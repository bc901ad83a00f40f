// Package reco reconstructs K*(892)0 → π K pairs and K1(1270)± → K*(892)0 π
// triples from the track list of one collision, or from the track lists of
// two mixed collisions, and fills the resulting (category, multiplicity, pT,
// mass) entries into sparse histograms.
//
// Nothing is materialized: every surviving combination goes straight into
// the histogram registry the Reconstructor was built with.
package reco
