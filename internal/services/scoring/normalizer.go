package scoring

import "math"

// Normalizer converts between the internal wide scale and the published
// external scale with a fixed invertible linear map. Rounding to the
// configured precision is applied only on ToExternal; the rounding error
// is a known, bounded information loss.
type Normalizer struct {
	internalBound float64
	externalBound float64
	precision     int
}

// NewNormalizer creates a normalizer mapping [-internalBound, internalBound]
// onto [-externalBound, externalBound].
func NewNormalizer(internalBound, externalBound float64, precision int) *Normalizer {
	return &Normalizer{
		internalBound: internalBound,
		externalBound: externalBound,
		precision:     precision,
	}
}

// ToExternal rescales an internal score and rounds it to the configured
// precision.
func (n *Normalizer) ToExternal(internal float64) float64 {
	external := internal * n.externalBound / n.internalBound
	factor := math.Pow(10, float64(n.precision))
	return math.Round(external*factor) / factor
}

// ToInternal rescales an external score back to the internal scale. It
// exists for input-validation symmetry, not to reconstruct a prior
// computation exactly.
func (n *Normalizer) ToInternal(external float64) float64 {
	return external * n.internalBound / n.externalBound
}

// Scale returns the external scale bounds as [min, max].
func (n *Normalizer) Scale() [2]float64 {
	return [2]float64{-n.externalBound, n.externalBound}
}
