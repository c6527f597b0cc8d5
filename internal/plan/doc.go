// Package plan loads and validates the YAML migration plan.
//
// A plan names the content types to migrate and, per content type, which
// attribute fields hold relationships and which destination content type
// their identifiers refer to.
package plan
