// Package classify turns raw OCR detections into Regions: Chinese-bearing
// boxes expressed in percent of the original frame.
//
// Two confidence floors exist. CollectionConfidenceFloor gates what is
// gathered for clustering; TrustConfidenceFloor only labels a Region as high
// confidence. They are deliberately separate values and are not unified.
package classify
