// Package fetch fans per-respondent retrieval out over a bounded worker
// pool. Each task is an immutable input bundle, each worker writes a
// disjoint result slot, and one respondent's failure never aborts the rest.
package fetch
