// Package strapi4 wraps the HTTP surface of a Strapi 4 installation.
//
// It layers typed request and response structures over the REST and upload
// endpoints, exposes interfaces consumed by the migration packages, and
// integrates with httpexec so interactions with the destination installation
// can be mocked during testing.
package strapi4
