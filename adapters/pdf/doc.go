// Package exportpdf converts vocabulary surfaces into PDF documents.
//
// Service hands the surface HTML to a pluggable Engine (headless Chromium
// through chromedp, or wkhtmltopdf) and opens the result as a pdfdoc.Document
// so the exporter can count and trim pages.
package exportpdf
