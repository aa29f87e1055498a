// Package blur turns subtitle tracks into timed pixel regions and renders
// them as feathered Gaussian blur.
//
// Plan converts percent tracks into padded pixel rectangles with time
// windows. With stabilization enabled, detections on the same row that are
// close in time are fused and widened to a per-row envelope so the mask
// does not jitter between samples. A Compositor is pure in t: it never
// mutates its inputs, and frames outside every window come back unchanged.
package blur
