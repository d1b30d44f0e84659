// Package html provides a Normaliser for HTML documents and fetched web
// pages. Tags, scripts, styles and page chrome are removed and entities
// decoded.
package html
