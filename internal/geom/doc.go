// Package geom holds the box arithmetic shared by the classifier, aggregator,
// and compositor.
//
// Box values are expressed in percent of the original frame (0..100 on both
// axes); pixel rectangles use image.Rectangle. IoU and the same-row proximity
// rule are defined once here so clustering and blur planning agree on them.
package geom
