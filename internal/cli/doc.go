// Package cli implements the ffn-meets command line.
//
// Every subcommand maps to one scraper operation and prints its result as a
// table or, with --format json, as the JSON entities the scrapers return.
// Errors are mapped to exit codes by kind so scripts can tell a missing
// competition from a network failure.
package cli
