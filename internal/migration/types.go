package migration

import (
	"context"

	"github.com/awatertrevi/strapi-migrator/internal/plan"
	"github.com/awatertrevi/strapi-migrator/internal/strapi3"
	"github.com/awatertrevi/strapi-migrator/internal/strapi4"
)

// SourceGateway describes the Strapi 3 operations the migration consumes.
type SourceGateway interface {
	SignIn(executionContext context.Context) error
	ListEntries(executionContext context.Context, contentType string, pageSize int) ([]strapi3.Entry, error)
	DownloadAsset(executionContext context.Context, assetURL string) (strapi3.AssetContent, error)
}

// DestinationGateway describes the Strapi 4 operations the migration consumes.
type DestinationGateway interface {
	CreateEntry(executionContext context.Context, contentType string, attributes map[string]any) (strapi4.CreatedEntry, error)
	UpdateEntry(executionContext context.Context, contentType string, entryIdentifier int64, attributes map[string]any) error
	UploadAsset(executionContext context.Context, fileName string, contents []byte) (strapi4.UploadedAsset, error)
	ResolveEntryIdentifier(executionContext context.Context, contentType string, sourceIdentifier int64) (int64, bool, error)
}

// MigrationExecutor abstracts migration execution for command wiring.
type MigrationExecutor interface {
	Execute(executionContext context.Context, options MigrationOptions) (MigrationResult, error)
}

// MigrationOptions configures one migration run.
type MigrationOptions struct {
	Plan            plan.Plan
	PageSize        int
	ResolveExisting bool
}

// ContentTypeOutcome captures the observable results for one migrated content type.
type ContentTypeOutcome struct {
	SourceContentType      string
	DestinationContentType string
	FetchedEntries         int
	CreatedEntries         int
	ReusedEntries          int
	CreationFailures       int
	LinkedEntries          int
	SkippedLinks           int
	LinkFailures           int
	UploadedAssets         int
	Warnings               []string
}

// MigrationResult aggregates outcomes across the migration plan.
type MigrationResult struct {
	ContentTypes []ContentTypeOutcome
}

// CreatedEntries sums created entries across content types.
func (result MigrationResult) CreatedEntries() int {
	total := 0
	for _, outcome := range result.ContentTypes {
		total += outcome.CreatedEntries
	}
	return total
}

// LinkedEntries sums patched entries across content types.
func (result MigrationResult) LinkedEntries() int {
	total := 0
	for _, outcome := range result.ContentTypes {
		total += outcome.LinkedEntries
	}
	return total
}

// UploadedAssets sums transferred media files across content types.
func (result MigrationResult) UploadedAssets() int {
	total := 0
	for _, outcome := range result.ContentTypes {
		total += outcome.UploadedAssets
	}
	return total
}

// FailedEntries sums entries that could not be created or patched.
func (result MigrationResult) FailedEntries() int {
	total := 0
	for _, outcome := range result.ContentTypes {
		total += outcome.CreationFailures + outcome.LinkFailures
	}
	return total
}

// Warnings concatenates per content type warnings in plan order.
func (result MigrationResult) Warnings() []string {
	var collected []string
	for _, outcome := range result.ContentTypes {
		collected = append(collected, outcome.Warnings...)
	}
	return collected
}

// IdentifierMap records which destination entry each source entry became,
// keyed by destination content type.
type IdentifierMap struct {
	assignments map[string]map[int64]int64
}

// NewIdentifierMap constructs an empty identifier map.
func NewIdentifierMap() *IdentifierMap {
	return &IdentifierMap{assignments: make(map[string]map[int64]int64)}
}

// Record stores the destination identifier assigned to a source entry.
func (identifierMap *IdentifierMap) Record(contentType string, sourceIdentifier int64, destinationIdentifier int64) {
	contentTypeAssignments, exists := identifierMap.assignments[contentType]
	if !exists {
		contentTypeAssignments = make(map[int64]int64)
		identifierMap.assignments[contentType] = contentTypeAssignments
	}
	contentTypeAssignments[sourceIdentifier] = destinationIdentifier
}

// Resolve reports the destination identifier recorded for a source entry.
func (identifierMap *IdentifierMap) Resolve(contentType string, sourceIdentifier int64) (int64, bool) {
	destinationIdentifier, exists := identifierMap.assignments[contentType][sourceIdentifier]
	return destinationIdentifier, exists
}

// Count reports how many assignments exist for a content type.
func (identifierMap *IdentifierMap) Count(contentType string) int {
	return len(identifierMap.assignments[contentType])
}
