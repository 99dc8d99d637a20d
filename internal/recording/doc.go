// Package recording implements episode monitors. A Recorder owns one
// recording directory for the duration of a monitor session: it holds an
// exclusive file lock on the directory, appends every reset and step
// transition to a SQLite trace store, and writes a JSON manifest summarizing
// all sessions when it closes.
//
// All files the package creates share the FilePrefix name prefix, which is how
// force-start identifies prior recordings to discard.
package recording
