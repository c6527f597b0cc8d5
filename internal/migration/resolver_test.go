package migration_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	migration "github.com/awatertrevi/strapi-migrator/internal/migration"
	"github.com/awatertrevi/strapi-migrator/internal/migration/testsupport"
	"github.com/awatertrevi/strapi-migrator/internal/plan"
	"github.com/awatertrevi/strapi-migrator/internal/strapi3"
)

const (
	articlesContentTypeNameConstant         = "articles"
	authorsContentTypeNameConstant          = "authors"
	authorFieldNameConstant                 = "author"
	titleFieldNameConstant                  = "title"
	imageFieldNameConstant                  = "image"
	identifierKeyConstant                   = "id"
	connectKeyConstant                      = "connect"
	sourceIdentifierAttributeConstant       = "old_id"
	firstTitleConstant                      = "First article"
	secondTitleConstant                     = "Second article"
	thirdTitleConstant                      = "Third article"
	photoAssetURLConstant                   = "/uploads/photo.png"
	brokenAssetURLConstant                  = "/uploads/broken.png"
	photoFileNameConstant                   = "photo.png"
	photoContentsConstant                   = "photo-bytes"
	entryCreationFailedMessageTextConstant  = "Entry creation failed"
	entryLinkFailedMessageTextConstant      = "Entry link failed"
	mediaTransferFailedMessageTextConstant  = "Media transfer failed"
	relationshipMissingMessageTextConstant  = "Relationship target missing"
	sourceIdentifierLogFieldNameConstant    = "source_id"
	destinationIdentifierLogFieldConstant   = "destination_id"
	creationFailureReasonConstant           = "database offline"
	lookupFailureReasonConstant             = "lookup offline"
	updateFailureReasonConstant             = "update rejected"
	downloadFailureReasonConstant           = "connection reset"
	expectedDanglingWarningConstant         = "entry 2 field author references authors 999 which was never migrated"
	expectedAssetTransferWarningConstant    = "entry 2 field image could not transfer media /uploads/broken.png: connection reset"
)

func articlesContentType() plan.ContentType {
	return plan.ContentType{
		Source:      articlesContentTypeNameConstant,
		Destination: articlesContentTypeNameConstant,
		Relationships: []plan.Relationship{
			{Field: authorFieldNameConstant, Target: authorsContentTypeNameConstant},
		},
	}
}

func connectionValue(destinationIdentifiers ...int64) map[string]any {
	connections := make([]any, 0, len(destinationIdentifiers))
	for _, destinationIdentifier := range destinationIdentifiers {
		connections = append(connections, map[string]any{identifierKeyConstant: destinationIdentifier})
	}
	return map[string]any{connectKeyConstant: connections}
}

func TestEntryResolverCreateEntries(testInstance *testing.T) {
	testCases := []struct {
		name                string
		entries             []strapi3.Entry
		resolveExisting     bool
		createErrors        map[int64]error
		existingIdentifiers map[string]map[int64]int64
		lookupError         error
		expectedOutcome     migration.CreationOutcome
		verify              func(*testing.T, *testsupport.DestinationGatewayStub, *migration.IdentifierMap, []observer.LoggedEntry)
	}{
		{
			name: "creates_entries_and_attaches_source_identifiers",
			entries: []strapi3.Entry{
				{Identifier: 1, Attributes: map[string]any{identifierKeyConstant: 1.0, titleFieldNameConstant: firstTitleConstant, authorFieldNameConstant: nil}},
				{Identifier: 2, Attributes: map[string]any{identifierKeyConstant: 2.0, titleFieldNameConstant: secondTitleConstant, authorFieldNameConstant: 1.0}},
			},
			expectedOutcome: migration.CreationOutcome{CreatedEntries: 2},
			verify: func(subtest *testing.T, destination *testsupport.DestinationGatewayStub, identifiers *migration.IdentifierMap, _ []observer.LoggedEntry) {
				require.Len(subtest, destination.CreatedEntries, 2)
				require.Equal(subtest, articlesContentTypeNameConstant, destination.CreatedEntries[0].ContentType)

				firstAttributes := destination.CreatedEntries[0].Attributes
				require.Equal(subtest, firstTitleConstant, firstAttributes[titleFieldNameConstant])
				require.Equal(subtest, int64(1), firstAttributes[sourceIdentifierAttributeConstant])
				require.NotContains(subtest, firstAttributes, authorFieldNameConstant)
				require.NotContains(subtest, firstAttributes, identifierKeyConstant)

				firstDestination, firstRecorded := identifiers.Resolve(articlesContentTypeNameConstant, 1)
				require.True(subtest, firstRecorded)
				require.Equal(subtest, int64(1), firstDestination)

				secondDestination, secondRecorded := identifiers.Resolve(articlesContentTypeNameConstant, 2)
				require.True(subtest, secondRecorded)
				require.Equal(subtest, int64(2), secondDestination)
			},
		},
		{
			name: "reuses_existing_destination_entries",
			entries: []strapi3.Entry{
				{Identifier: 1, Attributes: map[string]any{titleFieldNameConstant: firstTitleConstant}},
				{Identifier: 2, Attributes: map[string]any{titleFieldNameConstant: secondTitleConstant}},
			},
			resolveExisting: true,
			existingIdentifiers: map[string]map[int64]int64{
				articlesContentTypeNameConstant: {1: 41},
			},
			expectedOutcome: migration.CreationOutcome{CreatedEntries: 1, ReusedEntries: 1},
			verify: func(subtest *testing.T, destination *testsupport.DestinationGatewayStub, identifiers *migration.IdentifierMap, _ []observer.LoggedEntry) {
				require.Len(subtest, destination.LookupRequests, 2)
				require.Len(subtest, destination.CreatedEntries, 1)
				require.Equal(subtest, secondTitleConstant, destination.CreatedEntries[0].Attributes[titleFieldNameConstant])

				reusedDestination, reusedRecorded := identifiers.Resolve(articlesContentTypeNameConstant, 1)
				require.True(subtest, reusedRecorded)
				require.Equal(subtest, int64(41), reusedDestination)

				createdDestination, createdRecorded := identifiers.Resolve(articlesContentTypeNameConstant, 2)
				require.True(subtest, createdRecorded)
				require.Equal(subtest, int64(1), createdDestination)
			},
		},
		{
			name: "continues_after_creation_failures",
			entries: []strapi3.Entry{
				{Identifier: 1, Attributes: map[string]any{titleFieldNameConstant: firstTitleConstant}},
				{Identifier: 2, Attributes: map[string]any{titleFieldNameConstant: secondTitleConstant}},
				{Identifier: 3, Attributes: map[string]any{titleFieldNameConstant: thirdTitleConstant}},
			},
			createErrors:    map[int64]error{2: errors.New(creationFailureReasonConstant)},
			expectedOutcome: migration.CreationOutcome{CreatedEntries: 2, FailedEntries: 1},
			verify: func(subtest *testing.T, _ *testsupport.DestinationGatewayStub, identifiers *migration.IdentifierMap, logEntries []observer.LoggedEntry) {
				_, failedRecorded := identifiers.Resolve(articlesContentTypeNameConstant, 2)
				require.False(subtest, failedRecorded)
				require.Equal(subtest, 2, identifiers.Count(articlesContentTypeNameConstant))

				failureEntries := findLogEntries(logEntries, zapcore.ErrorLevel, entryCreationFailedMessageTextConstant)
				require.Len(subtest, failureEntries, 1)
				require.Equal(subtest, int64(2), failureEntries[0].ContextMap()[sourceIdentifierLogFieldNameConstant])
			},
		},
		{
			name: "counts_lookup_failures_as_failed_entries",
			entries: []strapi3.Entry{
				{Identifier: 1, Attributes: map[string]any{titleFieldNameConstant: firstTitleConstant}},
			},
			resolveExisting: true,
			lookupError:     errors.New(lookupFailureReasonConstant),
			expectedOutcome: migration.CreationOutcome{FailedEntries: 1},
			verify: func(subtest *testing.T, destination *testsupport.DestinationGatewayStub, _ *migration.IdentifierMap, _ []observer.LoggedEntry) {
				require.Len(subtest, destination.CreatedEntries, 0)
			},
		},
	}

	for testCaseIndex := range testCases {
		testCase := testCases[testCaseIndex]
		subtestName := fmt.Sprintf("%d_%s", testCaseIndex, testCase.name)

		testInstance.Run(subtestName, func(subtest *testing.T) {
			sourceGateway := &testsupport.SourceGatewayStub{}
			destinationGateway := &testsupport.DestinationGatewayStub{
				CreateErrors:        testCase.createErrors,
				ExistingIdentifiers: testCase.existingIdentifiers,
				LookupError:         testCase.lookupError,
			}

			logCore, observedLogs := observer.New(zap.DebugLevel)
			resolver := migration.NewEntryResolver(zap.New(logCore), sourceGateway, destinationGateway)

			identifiers := migration.NewIdentifierMap()
			outcome, executionError := resolver.CreateEntries(context.Background(), migration.CreationConfig{
				ContentType:     articlesContentType(),
				Entries:         testCase.entries,
				Identifiers:     identifiers,
				ResolveExisting: testCase.resolveExisting,
			})
			require.NoError(subtest, executionError)
			require.Equal(subtest, testCase.expectedOutcome, outcome)

			if testCase.verify != nil {
				testCase.verify(subtest, destinationGateway, identifiers, observedLogs.All())
			}
		})
	}
}

func TestEntryResolverCreateEntriesTransfersMedia(testInstance *testing.T) {
	sourceGateway := &testsupport.SourceGatewayStub{
		AssetsByURL: map[string]strapi3.AssetContent{
			photoAssetURLConstant: {FileName: photoFileNameConstant, Data: []byte(photoContentsConstant)},
		},
		DownloadErrors: map[string]error{
			brokenAssetURLConstant: errors.New(downloadFailureReasonConstant),
		},
	}
	destinationGateway := &testsupport.DestinationGatewayStub{}

	logCore, observedLogs := observer.New(zap.DebugLevel)
	resolver := migration.NewEntryResolver(zap.New(logCore), sourceGateway, destinationGateway)

	entries := []strapi3.Entry{
		{Identifier: 1, Attributes: map[string]any{
			titleFieldNameConstant: firstTitleConstant,
			imageFieldNameConstant: map[string]any{"url": photoAssetURLConstant},
		}},
		{Identifier: 2, Attributes: map[string]any{
			titleFieldNameConstant: secondTitleConstant,
			imageFieldNameConstant: map[string]any{"url": brokenAssetURLConstant},
		}},
	}

	outcome, executionError := resolver.CreateEntries(context.Background(), migration.CreationConfig{
		ContentType: articlesContentType(),
		Entries:     entries,
		Identifiers: migration.NewIdentifierMap(),
	})
	require.NoError(testInstance, executionError)
	require.Equal(testInstance, 2, outcome.CreatedEntries)
	require.Equal(testInstance, 1, outcome.UploadedAssets)
	require.Equal(testInstance, []string{expectedAssetTransferWarningConstant}, outcome.Warnings)

	require.Equal(testInstance, []string{photoAssetURLConstant, brokenAssetURLConstant}, sourceGateway.DownloadedURLs)

	require.Len(testInstance, destinationGateway.UploadedAssets, 1)
	require.Equal(testInstance, photoFileNameConstant, destinationGateway.UploadedAssets[0].FileName)
	require.Equal(testInstance, []byte(photoContentsConstant), destinationGateway.UploadedAssets[0].Contents)

	require.Len(testInstance, destinationGateway.CreatedEntries, 2)
	require.Equal(testInstance, int64(1), destinationGateway.CreatedEntries[0].Attributes[imageFieldNameConstant])
	require.NotContains(testInstance, destinationGateway.CreatedEntries[1].Attributes, imageFieldNameConstant)

	transferFailures := findLogEntries(observedLogs.All(), zapcore.WarnLevel, mediaTransferFailedMessageTextConstant)
	require.Len(testInstance, transferFailures, 1)
}

func TestEntryResolverLinkEntries(testInstance *testing.T) {
	testCases := []struct {
		name                string
		entries             []strapi3.Entry
		recordedIdentifiers map[string]map[int64]int64
		updateErrors        map[int64]error
		expectedOutcome     migration.LinkOutcome
		verify              func(*testing.T, *testsupport.DestinationGatewayStub, []observer.LoggedEntry)
	}{
		{
			name: "links_resolved_relationships",
			entries: []strapi3.Entry{
				{Identifier: 1, Attributes: map[string]any{titleFieldNameConstant: firstTitleConstant, authorFieldNameConstant: nil}},
				{Identifier: 2, Attributes: map[string]any{titleFieldNameConstant: secondTitleConstant, authorFieldNameConstant: 1.0}},
			},
			recordedIdentifiers: map[string]map[int64]int64{
				articlesContentTypeNameConstant: {1: 11, 2: 12},
				authorsContentTypeNameConstant:  {1: 21},
			},
			expectedOutcome: migration.LinkOutcome{LinkedEntries: 1, SkippedEntries: 1},
			verify: func(subtest *testing.T, destination *testsupport.DestinationGatewayStub, _ []observer.LoggedEntry) {
				require.Len(subtest, destination.UpdatedEntries, 1)
				require.Equal(subtest, articlesContentTypeNameConstant, destination.UpdatedEntries[0].ContentType)
				require.Equal(subtest, int64(12), destination.UpdatedEntries[0].EntryIdentifier)
				require.Equal(subtest, map[string]any{authorFieldNameConstant: connectionValue(21)}, destination.UpdatedEntries[0].Attributes)
			},
		},
		{
			name: "nullifies_dangling_references_with_warning",
			entries: []strapi3.Entry{
				{Identifier: 2, Attributes: map[string]any{authorFieldNameConstant: 999.0}},
			},
			recordedIdentifiers: map[string]map[int64]int64{
				articlesContentTypeNameConstant: {2: 12},
			},
			expectedOutcome: migration.LinkOutcome{LinkedEntries: 1, Warnings: []string{expectedDanglingWarningConstant}},
			verify: func(subtest *testing.T, destination *testsupport.DestinationGatewayStub, logEntries []observer.LoggedEntry) {
				require.Len(subtest, destination.UpdatedEntries, 1)
				authorValue, hasAuthor := destination.UpdatedEntries[0].Attributes[authorFieldNameConstant]
				require.True(subtest, hasAuthor)
				require.Nil(subtest, authorValue)

				missingTargetEntries := findLogEntries(logEntries, zapcore.WarnLevel, relationshipMissingMessageTextConstant)
				require.Len(subtest, missingTargetEntries, 1)
			},
		},
		{
			name: "skips_entries_without_recorded_identifiers",
			entries: []strapi3.Entry{
				{Identifier: 1, Attributes: map[string]any{authorFieldNameConstant: 1.0}},
			},
			recordedIdentifiers: map[string]map[int64]int64{},
			expectedOutcome:     migration.LinkOutcome{SkippedEntries: 1},
			verify: func(subtest *testing.T, destination *testsupport.DestinationGatewayStub, _ []observer.LoggedEntry) {
				require.Len(subtest, destination.UpdatedEntries, 0)
			},
		},
		{
			name: "continues_after_update_failures",
			entries: []strapi3.Entry{
				{Identifier: 1, Attributes: map[string]any{authorFieldNameConstant: 1.0}},
				{Identifier: 2, Attributes: map[string]any{authorFieldNameConstant: 2.0}},
			},
			recordedIdentifiers: map[string]map[int64]int64{
				articlesContentTypeNameConstant: {1: 11, 2: 12},
				authorsContentTypeNameConstant:  {1: 21, 2: 22},
			},
			updateErrors:    map[int64]error{11: errors.New(updateFailureReasonConstant)},
			expectedOutcome: migration.LinkOutcome{LinkedEntries: 1, FailedEntries: 1},
			verify: func(subtest *testing.T, destination *testsupport.DestinationGatewayStub, logEntries []observer.LoggedEntry) {
				require.Len(subtest, destination.UpdatedEntries, 2)

				failureEntries := findLogEntries(logEntries, zapcore.ErrorLevel, entryLinkFailedMessageTextConstant)
				require.Len(subtest, failureEntries, 1)
				require.Equal(subtest, int64(11), failureEntries[0].ContextMap()[destinationIdentifierLogFieldConstant])
			},
		},
	}

	for testCaseIndex := range testCases {
		testCase := testCases[testCaseIndex]
		subtestName := fmt.Sprintf("%d_%s", testCaseIndex, testCase.name)

		testInstance.Run(subtestName, func(subtest *testing.T) {
			sourceGateway := &testsupport.SourceGatewayStub{}
			destinationGateway := &testsupport.DestinationGatewayStub{UpdateErrors: testCase.updateErrors}

			logCore, observedLogs := observer.New(zap.DebugLevel)
			resolver := migration.NewEntryResolver(zap.New(logCore), sourceGateway, destinationGateway)

			identifiers := migration.NewIdentifierMap()
			for contentTypeName, assignments := range testCase.recordedIdentifiers {
				for sourceIdentifier, destinationIdentifier := range assignments {
					identifiers.Record(contentTypeName, sourceIdentifier, destinationIdentifier)
				}
			}

			outcome, executionError := resolver.LinkEntries(context.Background(), migration.LinkConfig{
				ContentType: articlesContentType(),
				Entries:     testCase.entries,
				Identifiers: identifiers,
			})
			require.NoError(subtest, executionError)
			require.Equal(subtest, testCase.expectedOutcome, outcome)

			if testCase.verify != nil {
				testCase.verify(subtest, destinationGateway, observedLogs.All())
			}
		})
	}
}

func TestEntryResolverAbortsOnCancellation(testInstance *testing.T) {
	testInstance.Run("creation_pass", func(subtest *testing.T) {
		destinationGateway := &testsupport.DestinationGatewayStub{
			CreateErrors: map[int64]error{1: context.Canceled},
		}
		resolver := migration.NewEntryResolver(zap.NewNop(), &testsupport.SourceGatewayStub{}, destinationGateway)

		outcome, executionError := resolver.CreateEntries(context.Background(), migration.CreationConfig{
			ContentType: articlesContentType(),
			Entries:     []strapi3.Entry{{Identifier: 1, Attributes: map[string]any{titleFieldNameConstant: firstTitleConstant}}},
			Identifiers: migration.NewIdentifierMap(),
		})
		require.ErrorIs(subtest, executionError, context.Canceled)
		require.Equal(subtest, migration.CreationOutcome{}, outcome)
	})

	testInstance.Run("link_pass", func(subtest *testing.T) {
		destinationGateway := &testsupport.DestinationGatewayStub{
			UpdateErrors: map[int64]error{11: context.DeadlineExceeded},
		}
		resolver := migration.NewEntryResolver(zap.NewNop(), &testsupport.SourceGatewayStub{}, destinationGateway)

		identifiers := migration.NewIdentifierMap()
		identifiers.Record(articlesContentTypeNameConstant, 1, 11)
		identifiers.Record(authorsContentTypeNameConstant, 1, 21)

		outcome, executionError := resolver.LinkEntries(context.Background(), migration.LinkConfig{
			ContentType: articlesContentType(),
			Entries:     []strapi3.Entry{{Identifier: 1, Attributes: map[string]any{authorFieldNameConstant: 1.0}}},
			Identifiers: identifiers,
		})
		require.ErrorIs(subtest, executionError, context.DeadlineExceeded)
		require.Equal(subtest, migration.LinkOutcome{}, outcome)
	})
}

func findLogEntries(entries []observer.LoggedEntry, level zapcore.Level, message string) []observer.LoggedEntry {
	matched := make([]observer.LoggedEntry, 0)
	for _, entry := range entries {
		if entry.Level == level && entry.Message == message {
			matched = append(matched, entry)
		}
	}
	return matched
}
