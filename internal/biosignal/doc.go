// Package biosignal defines the sample model shared by every analysis
// component: respondents, frequency bands, time-stamped value series, and a
// tri-state value type that keeps sensor dropouts distinct from padding
// introduced when series of unequal length are merged.
//
// Values never travel as NaN or as magic fill numbers; a cell is Present,
// Missing, or NotApplicable, and each downstream computation states which
// states it consumes.
package biosignal
