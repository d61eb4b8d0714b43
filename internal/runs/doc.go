// Package runs persists analysis run history in SQLite.
//
// Every invocation of an analysis records its parameters, respondent
// counts, produced output, and any warnings, so results stay
// reproducible after the fact. Sample data itself is never stored;
// biosignals are fetched fresh for each run.
package runs
