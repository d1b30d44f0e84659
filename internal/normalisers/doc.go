// Package normalisers turns raw document bytes into plain text.
// Each subpackage handles one family of MIME types; the Registry picks
// the highest-priority normaliser registered for a document's type.
//
// Normalisers are registered with the Registry at startup.
package normalisers
