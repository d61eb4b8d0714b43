// Package descriptive computes per-respondent summary statistics over
// channel data and assembles them into an exportable table.
package descriptive
