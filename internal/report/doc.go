// Package report renders analysis results for the terminal.
//
// Every function returns a string ready to print; the CLI decides
// where it goes and which style fits (rounded boxes on a TTY, plain
// columns when piped).
package report
