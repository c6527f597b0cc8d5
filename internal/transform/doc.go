// Package transform reshapes decoded source entries into destination payloads.
//
// Pass 1 uses BuildCreationPayload to strip metadata, relationship, and
// component fields while resolving top-level media. Pass 2 uses
// BuildLinkPayload to rewrite relationship references onto destination
// identifiers and to resolve media nested one level inside components.
// Both builders stay free of transport concerns: identifier and asset
// resolution arrive as caller-supplied functions.
package transform
