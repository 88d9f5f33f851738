// Package imaging handles image loading and the pixel-level operations the
// tiling pipeline needs: decoding source images, cropping exact tile
// rectangles, and encoding tile regions for upload to a prediction API.
//
// All operations work with standard Go image.Image values using the usual
// coordinate convention: (0,0) at the top-left corner, X increasing
// rightward, Y increasing downward, rectangles with an inclusive top-left
// and exclusive bottom-right.
//
// Cropping never mutates the source image; every crop is a copy. The Cache
// type is safe for concurrent use, and the stateless functions can be called
// concurrently on different images.
package imaging
