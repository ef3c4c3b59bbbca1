package tracker

import "github.com/RyanBlaney/sonido-recite/tracker/config"

// ApplyPolicy gates p by opts. Disabled options return p unchanged. Enabled
// options null the frequency of points below MinConfidence or outside
// [MinHz, MaxHz], keeping Time and Confidence.
func ApplyPolicy(p PitchPoint, opts config.FilterOptions) PitchPoint {
	if !opts.Enabled || !p.Frequency.Valid {
		return p
	}
	f := p.Frequency.Value
	if p.Confidence < opts.MinConfidence || f < opts.MinHz || f > opts.MaxHz {
		return p.Silenced()
	}
	return p
}
