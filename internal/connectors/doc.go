// Package connectors holds the document sources the assistant ingests from.
//
// filesystem walks and watches local directories; web fetches single pages
// by URL. Both hand back domain.RawDocument values for the normaliser
// registry to turn into text.
package connectors
