// Package nativepdf renders vocabulary sheets straight to PDF with gofpdf,
// without a browser. Each sheet becomes one A4 portrait page holding a 2x4
// grid of cards, so the output never carries a trailing blank page.
package nativepdf
