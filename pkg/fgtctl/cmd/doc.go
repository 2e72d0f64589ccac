// Package cmd implements the cobra command tree for the fgtctl CLI: the
// root request command plus version and shell completion subcommands.
package cmd
