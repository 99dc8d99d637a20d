// Package fileutil provides the small set of file operations the render and
// recording pipelines share: directory creation, atomic file writes via
// temp-file-then-rename, and prefix-scoped listing and removal used to detect
// and discard prior recording data.
package fileutil
