// Package sampling decides which frames of a video are worth looking at.
//
// Segments splits a video into fixed-length windows that the analysis worker
// pool fans out over. FrameIndices turns one segment into a sorted, deduped
// list of frame numbers using a multi-rate cadence: dense sampling in the
// opening seconds where burned-in titles usually appear, and a coarser
// steady-state interval afterwards. Helpers for even spacing and boundary
// refinement live here too so every frame-number calculation shares the same
// rounding rules.
package sampling
