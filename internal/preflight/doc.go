// Package preflight provides readiness checks for the directories,
// database, and study platform that entrain depends on.
//
// These checks run in two contexts:
//   - The CLI "entrain preflight" command runs them all and renders the
//     outcome before a user commits to a long analysis.
//   - Individual check functions back targeted diagnostics elsewhere.
//
// Checks report rather than repair: a missing directory is created when
// possible, everything else is surfaced with enough detail to fix by hand.
package preflight
