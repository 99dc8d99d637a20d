// Package process supervises a child process that is driven over its
// standard input and output.
//
// Process owns the pipes, sends stderr to a log file, reaps the child with a
// single Wait goroutine and stops it in escalating steps: stdin EOF first,
// then SIGTERM, then SIGKILL.
package process
