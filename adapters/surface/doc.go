// Package vocabsurface renders vocabulary sheets into HTML surfaces.
//
// Templates are Pongo2 (Django-style) files embedded at build time. A surface
// is a complete HTML document with one sheet section per page. Sheets are
// slightly shorter than A4 and each ends with a forced page break. When
// SurfaceOptions.Capturing is set the sheets switch to block flow, the
// inter-sheet gap collapses to zero, card removal buttons are omitted and a
// 1px spacer follows the last sheet, so print engines emit one page per sheet
// plus one trailing page.
package vocabsurface
