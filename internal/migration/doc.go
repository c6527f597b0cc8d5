// Package migration implements the two-pass content migration that copies
// entries from a Strapi 3 installation into a Strapi 4 installation, transfers
// referenced media files, and rewires relationships once every entry exists.
package migration
