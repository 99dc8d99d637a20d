// Package upload ships a recording directory to a remote scoreboard endpoint
// as a gzipped tar archive inside a multipart POST.
package upload
