package migration

import (
	"context"
	"errors"
	"fmt"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"

	"github.com/awatertrevi/strapi-migrator/internal/plan"
	"github.com/awatertrevi/strapi-migrator/internal/strapi3"
	"github.com/awatertrevi/strapi-migrator/internal/transform"
)

const (
	sourceIdentifierAttributeConstant         = "old_id"
	contentTypeFieldConstant                  = "content_type"
	sourceIdentifierFieldConstant             = "source_id"
	destinationIdentifierFieldConstant        = "destination_id"
	fieldNameFieldConstant                    = "field"
	targetContentTypeFieldConstant            = "target_content_type"
	referenceIdentifierFieldConstant          = "reference_id"
	assetURLFieldConstant                     = "asset_url"
	fileNameFieldConstant                     = "file_name"
	fileSizeFieldConstant                     = "file_size"
	entryCreatedMessageConstant               = "Entry created"
	entryCreationFailedMessageConstant        = "Entry creation failed"
	entryReusedMessageConstant                = "Existing entry reused"
	entryLookupFailedMessageConstant          = "Entry lookup failed"
	entryLinkedMessageConstant                = "Entry relationships linked"
	entryLinkFailedMessageConstant            = "Entry link failed"
	entryLinkSkippedMessageConstant           = "Entry link skipped"
	mediaTransferredMessageConstant           = "Media asset transferred"
	mediaTransferFailedMessageConstant        = "Media transfer failed"
	relationshipTargetMissingMessageConstant  = "Relationship target missing"
	danglingReferenceWarningTemplateConstant  = "entry %d field %s references %s %d which was never migrated"
	assetTransferWarningTemplateConstant      = "entry %d field %s could not transfer media %s: %s"
)

// CreationConfig describes the first-pass inputs for one content type.
type CreationConfig struct {
	ContentType     plan.ContentType
	Entries         []strapi3.Entry
	Identifiers     *IdentifierMap
	ResolveExisting bool
}

// CreationOutcome captures first-pass results for one content type.
type CreationOutcome struct {
	CreatedEntries int
	ReusedEntries  int
	FailedEntries  int
	UploadedAssets int
	Warnings       []string
}

// LinkConfig describes the second-pass inputs for one content type.
type LinkConfig struct {
	ContentType plan.ContentType
	Entries     []strapi3.Entry
	Identifiers *IdentifierMap
}

// LinkOutcome captures second-pass results for one content type.
type LinkOutcome struct {
	LinkedEntries  int
	SkippedEntries int
	FailedEntries  int
	UploadedAssets int
	Warnings       []string
}

// EntryResolver performs the per-entry work of both migration passes.
type EntryResolver struct {
	logger      *zap.Logger
	source      SourceGateway
	destination DestinationGateway
}

// NewEntryResolver constructs an EntryResolver instance.
func NewEntryResolver(logger *zap.Logger, source SourceGateway, destination DestinationGateway) *EntryResolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EntryResolver{logger: logger, source: source, destination: destination}
}

// CreateEntries copies each source entry into the destination, transferring
// top-level media on the way and recording identifier assignments. Entry
// failures are logged and skipped; only cancellation aborts the pass.
func (resolver *EntryResolver) CreateEntries(executionContext context.Context, config CreationConfig) (CreationOutcome, error) {
	outcome := CreationOutcome{}
	relationshipTargets := config.ContentType.RelationshipTargets()

	for _, entry := range config.Entries {
		if config.ResolveExisting {
			existingIdentifier, alreadyMigrated, lookupError := resolver.destination.ResolveEntryIdentifier(executionContext, config.ContentType.Destination, entry.Identifier)
			if lookupError != nil {
				if isCancellation(lookupError) {
					return outcome, lookupError
				}
				resolver.logger.Error(
					entryLookupFailedMessageConstant,
					zap.String(contentTypeFieldConstant, config.ContentType.Destination),
					zap.Int64(sourceIdentifierFieldConstant, entry.Identifier),
					zap.Error(lookupError),
				)
				outcome.FailedEntries++
				continue
			}
			if alreadyMigrated {
				config.Identifiers.Record(config.ContentType.Destination, entry.Identifier, existingIdentifier)
				outcome.ReusedEntries++
				resolver.logger.Debug(
					entryReusedMessageConstant,
					zap.String(contentTypeFieldConstant, config.ContentType.Destination),
					zap.Int64(sourceIdentifierFieldConstant, entry.Identifier),
					zap.Int64(destinationIdentifierFieldConstant, existingIdentifier),
				)
				continue
			}
		}

		payload := transform.BuildCreationPayload(entry.Attributes, relationshipTargets, resolver.assetResolver(executionContext, &outcome.UploadedAssets))
		resolver.recordAssetFailures(entry.Identifier, payload.AssetFailures, &outcome.Warnings)
		payload.Fields[sourceIdentifierAttributeConstant] = entry.Identifier

		created, creationError := resolver.destination.CreateEntry(executionContext, config.ContentType.Destination, payload.Fields)
		if creationError != nil {
			if isCancellation(creationError) {
				return outcome, creationError
			}
			resolver.logger.Error(
				entryCreationFailedMessageConstant,
				zap.String(contentTypeFieldConstant, config.ContentType.Destination),
				zap.Int64(sourceIdentifierFieldConstant, entry.Identifier),
				zap.Error(creationError),
			)
			outcome.FailedEntries++
			continue
		}

		config.Identifiers.Record(config.ContentType.Destination, entry.Identifier, created.Identifier)
		outcome.CreatedEntries++
		resolver.logger.Debug(
			entryCreatedMessageConstant,
			zap.String(contentTypeFieldConstant, config.ContentType.Destination),
			zap.Int64(sourceIdentifierFieldConstant, entry.Identifier),
			zap.Int64(destinationIdentifierFieldConstant, created.Identifier),
		)
	}

	return outcome, nil
}

// LinkEntries patches relationship and component fields onto the destination
// entries recorded during the first pass. Entries without recorded identifiers
// or without link fields are skipped.
func (resolver *EntryResolver) LinkEntries(executionContext context.Context, config LinkConfig) (LinkOutcome, error) {
	outcome := LinkOutcome{}
	relationshipTargets := config.ContentType.RelationshipTargets()

	referenceResolver := func(targetContentType string, sourceIdentifier int64) (int64, bool) {
		return config.Identifiers.Resolve(targetContentType, sourceIdentifier)
	}

	for _, entry := range config.Entries {
		destinationIdentifier, recorded := config.Identifiers.Resolve(config.ContentType.Destination, entry.Identifier)
		if !recorded {
			resolver.logger.Debug(
				entryLinkSkippedMessageConstant,
				zap.String(contentTypeFieldConstant, config.ContentType.Destination),
				zap.Int64(sourceIdentifierFieldConstant, entry.Identifier),
			)
			outcome.SkippedEntries++
			continue
		}

		payload := transform.BuildLinkPayload(entry.Attributes, relationshipTargets, referenceResolver, resolver.assetResolver(executionContext, &outcome.UploadedAssets))
		resolver.recordDanglingReferences(entry.Identifier, payload.Dangling, &outcome.Warnings)
		resolver.recordAssetFailures(entry.Identifier, payload.AssetFailures, &outcome.Warnings)

		if len(payload.Fields) == 0 {
			outcome.SkippedEntries++
			continue
		}

		updateError := resolver.destination.UpdateEntry(executionContext, config.ContentType.Destination, destinationIdentifier, payload.Fields)
		if updateError != nil {
			if isCancellation(updateError) {
				return outcome, updateError
			}
			resolver.logger.Error(
				entryLinkFailedMessageConstant,
				zap.String(contentTypeFieldConstant, config.ContentType.Destination),
				zap.Int64(sourceIdentifierFieldConstant, entry.Identifier),
				zap.Int64(destinationIdentifierFieldConstant, destinationIdentifier),
				zap.Error(updateError),
			)
			outcome.FailedEntries++
			continue
		}

		outcome.LinkedEntries++
		resolver.logger.Debug(
			entryLinkedMessageConstant,
			zap.String(contentTypeFieldConstant, config.ContentType.Destination),
			zap.Int64(sourceIdentifierFieldConstant, entry.Identifier),
			zap.Int64(destinationIdentifierFieldConstant, destinationIdentifier),
		)
	}

	return outcome, nil
}

func (resolver *EntryResolver) assetResolver(executionContext context.Context, uploadCount *int) transform.AssetResolver {
	return func(assetURL string) (int64, error) {
		asset, downloadError := resolver.source.DownloadAsset(executionContext, assetURL)
		if downloadError != nil {
			return 0, downloadError
		}

		uploaded, uploadError := resolver.destination.UploadAsset(executionContext, asset.FileName, asset.Data)
		if uploadError != nil {
			return 0, uploadError
		}

		resolver.logger.Debug(
			mediaTransferredMessageConstant,
			zap.String(fileNameFieldConstant, asset.FileName),
			zap.String(fileSizeFieldConstant, humanize.Bytes(uint64(len(asset.Data)))),
			zap.Int64(destinationIdentifierFieldConstant, uploaded.Identifier),
		)
		*uploadCount++
		return uploaded.Identifier, nil
	}
}

func (resolver *EntryResolver) recordAssetFailures(sourceIdentifier int64, assetFailures []transform.AssetFailure, warnings *[]string) {
	for _, assetFailure := range assetFailures {
		resolver.logger.Warn(
			mediaTransferFailedMessageConstant,
			zap.Int64(sourceIdentifierFieldConstant, sourceIdentifier),
			zap.String(fieldNameFieldConstant, assetFailure.FieldName),
			zap.String(assetURLFieldConstant, assetFailure.AssetURL),
			zap.Error(assetFailure.Cause),
		)
		*warnings = append(*warnings, fmt.Sprintf(assetTransferWarningTemplateConstant, sourceIdentifier, assetFailure.FieldName, assetFailure.AssetURL, assetFailure.Cause))
	}
}

func (resolver *EntryResolver) recordDanglingReferences(sourceIdentifier int64, danglingReferences []transform.DanglingReference, warnings *[]string) {
	for _, danglingReference := range danglingReferences {
		resolver.logger.Warn(
			relationshipTargetMissingMessageConstant,
			zap.Int64(sourceIdentifierFieldConstant, sourceIdentifier),
			zap.String(fieldNameFieldConstant, danglingReference.FieldName),
			zap.String(targetContentTypeFieldConstant, danglingReference.TargetContentType),
			zap.Int64(referenceIdentifierFieldConstant, danglingReference.SourceIdentifier),
		)
		*warnings = append(*warnings, fmt.Sprintf(danglingReferenceWarningTemplateConstant, sourceIdentifier, danglingReference.FieldName, danglingReference.TargetContentType, danglingReference.SourceIdentifier))
	}
}

func isCancellation(candidateError error) bool {
	return errors.Is(candidateError, context.Canceled) || errors.Is(candidateError, context.DeadlineExceeded)
}
