// Package glmocr provides a client for the GLM-OCR layout_parsing API.
//
// The client implements ocr.BatchEngine so the analysis pipeline can use it
// as its preferred backend.
//
// # Request Format
//
// Each image is sent alone as a base64 PNG data URL in the "file" field,
// together with the configured model name. Images wider than 1280 px are
// downscaled first and returned boxes are mapped back to the caller's
// coordinates.
//
// # Response Parsing
//
// layout_details entries labelled text, paragraph, title, paragraph_title
// or table become detections. bbox_2d [x1,y1,x2,y2] becomes a clockwise
// quad, leading markdown heading markers are stripped, and the confidence
// is fixed at 0.9 because the API does not report one.
//
// # Retry and Offline Behaviour
//
// HTTP 408/429/5xx and network timeouts are retried with exponential
// backoff. After a configurable number of consecutive failed calls
// (default 3) the client switches to offline mode and reports itself
// unavailable until ResetOffline is called.
package glmocr
