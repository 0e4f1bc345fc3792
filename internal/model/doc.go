// Package model defines the domain types and value objects for the
// imageship CLI.
//
// This package contains pure data structures with no Docker or
// filesystem dependencies: publish targets, publish results, image
// provenance metadata, exit codes, and the CLIError type that carries
// exit codes for proper OS process exit handling.
package model
