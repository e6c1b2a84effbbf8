// Package utils provides bespoke, one off utils and build metadata for the
// livewire binary.
package utils

var (
	Version   = "dev"
	Sha       = "HEAD"
	Buildtime = "dev"
)
