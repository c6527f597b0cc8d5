package migration

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/awatertrevi/strapi-migrator/internal/strapi3"
)

const (
	planFieldNameConstant                    = "plan"
	planContentTypesRequiredMessageConstant  = "at least one content type required"
	sourceGatewayMissingMessageConstant      = "source gateway not configured"
	destinationGatewayMissingMessageConstant = "destination gateway not configured"
	signInErrorTemplateConstant              = "source sign-in failed: %w"
	listEntriesErrorTemplateConstant         = "unable to list %s entries: %w"
	entriesFetchedMessageConstant            = "Source entries fetched"
	entryCountFieldConstant                  = "entry_count"
)

// InvalidInputError describes migration option validation failures.
type InvalidInputError struct {
	FieldName string
	Message   string
}

// Error describes the invalid input.
func (inputError InvalidInputError) Error() string {
	return fmt.Sprintf("%s: %s", inputError.FieldName, inputError.Message)
}

// ServiceDependencies describes required collaborators for migration.
type ServiceDependencies struct {
	Logger      *zap.Logger
	Source      SourceGateway
	Destination DestinationGateway
}

// Service orchestrates the two-pass migration workflow.
type Service struct {
	logger        *zap.Logger
	source        SourceGateway
	destination   DestinationGateway
	entryResolver *EntryResolver
}

var (
	errSourceGatewayMissing      = errors.New(sourceGatewayMissingMessageConstant)
	errDestinationGatewayMissing = errors.New(destinationGatewayMissingMessageConstant)
)

// NewService constructs a Service with the provided dependencies.
func NewService(dependencies ServiceDependencies) (*Service, error) {
	if dependencies.Source == nil {
		return nil, errSourceGatewayMissing
	}
	if dependencies.Destination == nil {
		return nil, errDestinationGatewayMissing
	}

	logger := dependencies.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	service := &Service{
		logger:        logger,
		source:        dependencies.Source,
		destination:   dependencies.Destination,
		entryResolver: NewEntryResolver(logger, dependencies.Source, dependencies.Destination),
	}

	return service, nil
}

// Execute performs the migration workflow: it signs in to the source, fetches
// every planned entry, creates destination entries in the first pass, and
// links relationships in the second pass once all identifiers are recorded.
func (service *Service) Execute(executionContext context.Context, options MigrationOptions) (MigrationResult, error) {
	if validationError := service.validateOptions(options); validationError != nil {
		return MigrationResult{}, validationError
	}

	if signInError := service.source.SignIn(executionContext); signInError != nil {
		return MigrationResult{}, fmt.Errorf(signInErrorTemplateConstant, signInError)
	}

	entriesByDestination := make(map[string][]strapi3.Entry, len(options.Plan.ContentTypes))
	outcomes := make([]ContentTypeOutcome, len(options.Plan.ContentTypes))

	for contentTypeIndex, contentType := range options.Plan.ContentTypes {
		entries, listError := service.source.ListEntries(executionContext, contentType.Source, options.PageSize)
		if listError != nil {
			return MigrationResult{}, fmt.Errorf(listEntriesErrorTemplateConstant, contentType.Source, listError)
		}

		entriesByDestination[contentType.Destination] = entries
		outcomes[contentTypeIndex] = ContentTypeOutcome{
			SourceContentType:      contentType.Source,
			DestinationContentType: contentType.Destination,
			FetchedEntries:         len(entries),
		}

		service.logger.Info(
			entriesFetchedMessageConstant,
			zap.String(contentTypeFieldConstant, contentType.Source),
			zap.Int(entryCountFieldConstant, len(entries)),
		)
	}

	identifiers := NewIdentifierMap()

	for contentTypeIndex, contentType := range options.Plan.ContentTypes {
		creationOutcome, creationError := service.entryResolver.CreateEntries(executionContext, CreationConfig{
			ContentType:     contentType,
			Entries:         entriesByDestination[contentType.Destination],
			Identifiers:     identifiers,
			ResolveExisting: options.ResolveExisting,
		})
		applyCreationOutcome(&outcomes[contentTypeIndex], creationOutcome)
		if creationError != nil {
			return MigrationResult{}, creationError
		}
	}

	for contentTypeIndex, contentType := range options.Plan.ContentTypes {
		linkOutcome, linkError := service.entryResolver.LinkEntries(executionContext, LinkConfig{
			ContentType: contentType,
			Entries:     entriesByDestination[contentType.Destination],
			Identifiers: identifiers,
		})
		applyLinkOutcome(&outcomes[contentTypeIndex], linkOutcome)
		if linkError != nil {
			return MigrationResult{}, linkError
		}
	}

	return MigrationResult{ContentTypes: outcomes}, nil
}

func (service *Service) validateOptions(options MigrationOptions) error {
	if len(options.Plan.ContentTypes) == 0 {
		return InvalidInputError{FieldName: planFieldNameConstant, Message: planContentTypesRequiredMessageConstant}
	}
	return nil
}

func applyCreationOutcome(outcome *ContentTypeOutcome, creation CreationOutcome) {
	outcome.CreatedEntries = creation.CreatedEntries
	outcome.ReusedEntries = creation.ReusedEntries
	outcome.CreationFailures = creation.FailedEntries
	outcome.UploadedAssets += creation.UploadedAssets
	outcome.Warnings = append(outcome.Warnings, creation.Warnings...)
}

func applyLinkOutcome(outcome *ContentTypeOutcome, link LinkOutcome) {
	outcome.LinkedEntries = link.LinkedEntries
	outcome.SkippedLinks = link.SkippedEntries
	outcome.LinkFailures = link.FailedEntries
	outcome.UploadedAssets += link.UploadedAssets
	outcome.Warnings = append(outcome.Warnings, link.Warnings...)
}
