// Package pipeline sequences an analysis run end to end: run lock, history
// record, respondent discovery, fan-out retrieval, quality filtering,
// aggregation, artifact export, upload, and notification.
//
// Recoverable problems (parameter clamps, per-respondent fetch failures,
// empty contributions, upload trouble) become run warnings and never abort
// a run. Validation and infrastructure failures mark the run failed and
// surface as errors.
package pipeline
