package kernel

import "github.com/roach88/qube/internal/ir"

// MaxStructures bounds the number of structures one synthesis returns.
const MaxStructures = 3

// ReorganizeAndSynthesize derives synthetic structures from the live anchor.
// It reads nothing but the anchor and changes nothing, so two calls with no
// Execute or DockPattern in between return identical slices.
func (k *Kernel) ReorganizeAndSynthesize() []ir.SyntheticStructure {
	return Synthesize(k.anchor)
}

// Synthesize derives between 1 and MaxStructures platforms from anchor.
// All values come from ir.SynthesisSeed(anchor); every coordinate is an
// integer below 2^24 and therefore exact in float32.
func Synthesize(anchor string) []ir.SyntheticStructure {
	seed := ir.SynthesisSeed(anchor)
	count := int(seed%MaxStructures) + 1

	structures := make([]ir.SyntheticStructure, 0, count)
	for i := 0; i < count; i++ {
		structures = append(structures, ir.SyntheticStructure{
			X:    float32(seed%400) - 200 + float32(i)*50,
			Y:    float32(seed%20) + 5,
			W:    50 + float32(seed%100),
			H:    10,
			Type: ir.StructureTypePlatform,
		})
	}
	return structures
}
