// Package frame persists rendered engine frames. Pixel frames are encoded as
// PNG and text frames are written verbatim; each file is named by the render
// counter value it was captured under, so names are unique per instance and
// sort in capture order.
package frame
