// Package strapi3 wraps the HTTP surface of a Strapi 3 installation.
//
// It layers typed request and response structures over the legacy admin and
// content endpoints, exposes interfaces consumed by the migration packages,
// and integrates with httpexec so interactions with the source installation
// can be mocked during testing.
package strapi3
