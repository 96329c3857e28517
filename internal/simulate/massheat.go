package simulate

// Correction returns the maggot-mass self-heating delta for a larva of the
// given biological age in ADH. Zero below the colonization threshold;
// above it the delta ramps linearly with age (a proxy for colony size) and
// saturates at MaxHeatC. Monotonic non-decreasing in age, so the
// simulation never oscillates.
func (m MassParams) Correction(ageADH float64) float64 {
	if m.MaxHeatC <= 0 || ageADH <= m.ColonizationADH {
		return 0
	}
	if m.RampADH <= 0 {
		return m.MaxHeatC
	}
	frac := (ageADH - m.ColonizationADH) / m.RampADH
	if frac > 1 {
		frac = 1
	}
	return m.MaxHeatC * frac
}
