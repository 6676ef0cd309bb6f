//go:build windows

package ospkg

// NewLine terminates the text lines of output files, as expected by
// Windows spreadsheet tools.
const NewLine = "\r\n"
