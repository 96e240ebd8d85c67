// Package vocab holds the vocabulary sheet domain: the ordered item store,
// pagination into sheets of eight, image intake, and the export pipeline
// that renders sheets through a RenderService and drops the trailing blank
// page the print surface produces.
//
// Controller is the entry point for UIs and CLIs. It owns the store and the
// downloading flag, serializes exports, and records export history through a
// Tracker.
package vocab
