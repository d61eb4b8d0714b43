// Package export renders analysis results to files.
//
// CSV is the primary format for both correlation series and
// descriptive summaries. Correlation series can additionally be
// rendered as plain EDF for review in signal viewers. Files are
// placed atomically: content goes to a temp file in the target
// directory first and is renamed into place once synced.
package export
