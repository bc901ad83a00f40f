package reco

// Mode selects same-event or mixed-event reconstruction.
type Mode int

const (
	Same Mode = iota
	Mixed
)

func (m Mode) String() string {
	if m == Mixed {
		return "mixed"
	}
	return "same"
}

// Category tags a K1 entry by bachelor charge, K*0 conjugation and mode.
// The numeric values are the bin centres on the histogram type axis.
type Category int

const (
	MatterPos Category = iota + 1
	MatterNeg
	AntiPos
	AntiNeg
	MatterPosMix
	MatterNegMix
	AntiPosMix
	AntiNegMix
	numCategories
)

var categoryNames = [...]string{
	MatterPos:    "MatterPos",
	MatterNeg:    "MatterNeg",
	AntiPos:      "AntiPos",
	AntiNeg:      "AntiNeg",
	MatterPosMix: "MatterPos_Mix",
	MatterNegMix: "MatterNeg_Mix",
	AntiPosMix:   "AntiPos_Mix",
	AntiNegMix:   "AntiNeg_Mix",
}

func (c Category) String() string {
	if c < MatterPos || c >= numCategories {
		return "unknown"
	}
	return categoryNames[c]
}

// Mixed reports whether the category belongs to the mixed-event set.
func (c Category) Mixed() bool { return c >= MatterPosMix && c < numCategories }

// CategoryOf classifies a K1 candidate. anti is true for a K*0bar, i.e. a
// positive kaon.
func CategoryOf(bachelorSign int8, anti bool, mode Mode) Category {
	var c Category
	switch {
	case bachelorSign > 0 && !anti:
		c = MatterPos
	case bachelorSign > 0:
		c = AntiPos
	case !anti:
		c = MatterNeg
	default:
		c = AntiNeg
	}
	if mode == Mixed {
		c += MatterPosMix - MatterPos
	}
	return c
}

// quickCheck reports whether the category enters the 1-D K1 mass quick
// check: a pi+ on a K*0 or a pi- on a K*0bar.
func (c Category) quickCheck() bool {
	switch c {
	case MatterPos, AntiNeg, MatterPosMix, AntiNegMix:
		return true
	}
	return false
}

// K892Type tags a K*0 entry. K*0 histograms are filled from same-event
// pairs only, so there is no mixed type.
type K892Type int

const (
	K892Matter K892Type = iota + 1
	K892Anti
)

// MCRecon is the MC type axis value of a truth-matched reconstructed K1.
const MCRecon = 2
