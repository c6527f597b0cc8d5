package testsupport

import (
	"context"
	"fmt"

	migration "github.com/awatertrevi/strapi-migrator/internal/migration"
	"github.com/awatertrevi/strapi-migrator/internal/strapi3"
	"github.com/awatertrevi/strapi-migrator/internal/strapi4"
)

const sourceIdentifierAttributeNameConstant = "old_id"

// SourceGatewayStub implements the source gateway for tests.
type SourceGatewayStub struct {
	SignInError    error
	EntriesByType  map[string][]strapi3.Entry
	ListError      error
	AssetsByURL    map[string]strapi3.AssetContent
	DownloadErrors map[string]error

	SignInCalls        int
	ListedContentTypes []string
	ListedPageSizes    []int
	DownloadedURLs     []string
}

// SignIn records the call and returns the configured error.
func (gateway *SourceGatewayStub) SignIn(_ context.Context) error {
	gateway.SignInCalls++
	return gateway.SignInError
}

// ListEntries records the request and returns the configured entries for the content type.
func (gateway *SourceGatewayStub) ListEntries(_ context.Context, contentType string, pageSize int) ([]strapi3.Entry, error) {
	gateway.ListedContentTypes = append(gateway.ListedContentTypes, contentType)
	gateway.ListedPageSizes = append(gateway.ListedPageSizes, pageSize)
	if gateway.ListError != nil {
		return nil, gateway.ListError
	}
	return append([]strapi3.Entry{}, gateway.EntriesByType[contentType]...), nil
}

// DownloadAsset records the requested URL and returns the configured asset or error.
func (gateway *SourceGatewayStub) DownloadAsset(_ context.Context, assetURL string) (strapi3.AssetContent, error) {
	gateway.DownloadedURLs = append(gateway.DownloadedURLs, assetURL)
	if downloadError, exists := gateway.DownloadErrors[assetURL]; exists {
		return strapi3.AssetContent{}, downloadError
	}
	if asset, exists := gateway.AssetsByURL[assetURL]; exists {
		return asset, nil
	}
	return strapi3.AssetContent{}, fmt.Errorf("no asset configured for %s", assetURL)
}

// CreatedEntryRecord captures a create request observed by the destination stub.
type CreatedEntryRecord struct {
	ContentType string
	Attributes  map[string]any
}

// UpdatedEntryRecord captures an update request observed by the destination stub.
type UpdatedEntryRecord struct {
	ContentType     string
	EntryIdentifier int64
	Attributes      map[string]any
}

// UploadedAssetRecord captures an upload request observed by the destination stub.
type UploadedAssetRecord struct {
	FileName string
	Contents []byte
}

// LookupRecord captures an identifier lookup observed by the destination stub.
type LookupRecord struct {
	ContentType      string
	SourceIdentifier int64
}

// DestinationGatewayStub implements the destination gateway for tests.
type DestinationGatewayStub struct {
	NextEntryIdentifier int64
	NextAssetIdentifier int64
	CreateErrors        map[int64]error
	UpdateErrors        map[int64]error
	UploadErrors        map[string]error
	ExistingIdentifiers map[string]map[int64]int64
	LookupError         error

	CreatedEntries []CreatedEntryRecord
	UpdatedEntries []UpdatedEntryRecord
	UploadedAssets []UploadedAssetRecord
	LookupRequests []LookupRecord
}

// CreateEntry records the request and returns the next sequential identifier.
// Entries whose source identifier attribute matches a configured error fail instead.
func (gateway *DestinationGatewayStub) CreateEntry(_ context.Context, contentType string, attributes map[string]any) (strapi4.CreatedEntry, error) {
	gateway.CreatedEntries = append(gateway.CreatedEntries, CreatedEntryRecord{ContentType: contentType, Attributes: attributes})
	if sourceIdentifier, carries := attributes[sourceIdentifierAttributeNameConstant].(int64); carries {
		if creationError, exists := gateway.CreateErrors[sourceIdentifier]; exists {
			return strapi4.CreatedEntry{}, creationError
		}
	}
	gateway.NextEntryIdentifier++
	return strapi4.CreatedEntry{Identifier: gateway.NextEntryIdentifier}, nil
}

// UpdateEntry records the request and returns the configured error for the identifier.
func (gateway *DestinationGatewayStub) UpdateEntry(_ context.Context, contentType string, entryIdentifier int64, attributes map[string]any) error {
	gateway.UpdatedEntries = append(gateway.UpdatedEntries, UpdatedEntryRecord{
		ContentType:     contentType,
		EntryIdentifier: entryIdentifier,
		Attributes:      attributes,
	})
	if updateError, exists := gateway.UpdateErrors[entryIdentifier]; exists {
		return updateError
	}
	return nil
}

// UploadAsset records the request and returns the next sequential asset identifier.
func (gateway *DestinationGatewayStub) UploadAsset(_ context.Context, fileName string, contents []byte) (strapi4.UploadedAsset, error) {
	gateway.UploadedAssets = append(gateway.UploadedAssets, UploadedAssetRecord{FileName: fileName, Contents: contents})
	if uploadError, exists := gateway.UploadErrors[fileName]; exists {
		return strapi4.UploadedAsset{}, uploadError
	}
	gateway.NextAssetIdentifier++
	return strapi4.UploadedAsset{Identifier: gateway.NextAssetIdentifier}, nil
}

// ResolveEntryIdentifier records the lookup and answers from the configured identifiers.
func (gateway *DestinationGatewayStub) ResolveEntryIdentifier(_ context.Context, contentType string, sourceIdentifier int64) (int64, bool, error) {
	gateway.LookupRequests = append(gateway.LookupRequests, LookupRecord{ContentType: contentType, SourceIdentifier: sourceIdentifier})
	if gateway.LookupError != nil {
		return 0, false, gateway.LookupError
	}
	identifiersForType, exists := gateway.ExistingIdentifiers[contentType]
	if !exists {
		return 0, false, nil
	}
	destinationIdentifier, found := identifiersForType[sourceIdentifier]
	if !found {
		return 0, false, nil
	}
	return destinationIdentifier, true, nil
}

// ServiceStub captures migration execution requests for verification.
type ServiceStub struct {
	Result          migration.MigrationResult
	ExecutionError  error
	ExecutedOptions []migration.MigrationOptions
}

// Execute records the options and returns the configured result.
func (service *ServiceStub) Execute(_ context.Context, options migration.MigrationOptions) (migration.MigrationResult, error) {
	service.ExecutedOptions = append(service.ExecutedOptions, options)
	return service.Result, service.ExecutionError
}

// CredentialResolverStub resolves credentials from a fixed mapping.
type CredentialResolverStub struct {
	Values          map[string]string
	ResolutionError error
	ResolvedSources []migration.CredentialSource
}

// ResolveCredential records the source and answers from the configured values,
// echoing the reference when no mapping exists.
func (resolver *CredentialResolverStub) ResolveCredential(source migration.CredentialSource) (string, error) {
	resolver.ResolvedSources = append(resolver.ResolvedSources, source)
	if resolver.ResolutionError != nil {
		return "", resolver.ResolutionError
	}
	if resolvedValue, exists := resolver.Values[source.Reference]; exists {
		return resolvedValue, nil
	}
	return source.Reference, nil
}
