// Package cmd implements the redispipe command line tool.
//
// Flags can also be given as environment variables prefixed with REDISPIPE_
// (dashes become underscores), optionally from a .env or .env.local file in the
// working directory.
package cmd
