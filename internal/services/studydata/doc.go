// Package studydata talks to the study data platform API: respondent
// listing, per-respondent PSD retrieval and metric upload. It is the only
// package that knows the platform's wire formats.
package studydata
