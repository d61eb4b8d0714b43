// Package isc computes intersubject correlation: per frequency band, the
// mean absolute Pearson correlation across all respondent pairs over
// sliding sample windows.
package isc
