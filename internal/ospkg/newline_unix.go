//go:build !windows

package ospkg

// NewLine terminates the text lines of output files.
const NewLine = "\n"
