// Package main hosts the entrain CLI entrypoint and command graph.
//
// The Cobra-based command tree translates terminal invocations into
// correlation and statistics runs, respondent listings, run-history queries,
// environment checks, and configuration scaffolding. It centralizes
// configuration resolution, logger construction, and store wiring so
// subcommands can focus on user experience instead of plumbing.
//
// Keep this package lean: add new functionality by extending the internal
// packages first, then surface it through dedicated commands or flags here.
package main
