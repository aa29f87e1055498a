// Package logs reads the hanziblur log file for the CLI "logs" command.
//
// It returns the last N matching lines with bounded memory and follows the
// file for new lines until the context ends. Lines can be narrowed to one
// analysis run or one component; both console and JSON log formats are
// understood.
package logs
