// Package main hosts the hanziblur CLI entrypoint and command graph.
//
// The Cobra command tree resolves configuration once, builds the shared
// logger, and hands off to the internal packages: analysis for detection,
// blur for rendering, preflight for the readiness report, and trackcache for
// result reuse. Commands stay thin; new behaviour belongs in internal
// packages first.
package main
