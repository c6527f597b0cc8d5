package migration

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/awatertrevi/strapi-migrator/internal/httpexec"
	"github.com/awatertrevi/strapi-migrator/internal/plan"
	"github.com/awatertrevi/strapi-migrator/internal/strapi3"
	"github.com/awatertrevi/strapi-migrator/internal/strapi4"
	"github.com/awatertrevi/strapi-migrator/internal/utils"
)

const (
	commandUseConstant                         = "migrate"
	commandShortDescriptionConstant            = "Copy content from a Strapi 3 installation into a Strapi 4 installation"
	commandLongDescriptionConstant             = "migrate signs in to the source installation, copies every planned entry into the destination, transfers referenced media uploads, and rewires relationships once all entries exist."
	planFlagNameConstant                       = "plan"
	planFlagUsageConstant                      = "Path to the migration plan file"
	contentTypeFlagNameConstant                = "content-type"
	contentTypeFlagUsageConstant               = "Restrict the migration to a single source content type"
	pageSizeFlagNameConstant                   = "page-size"
	pageSizeFlagUsageConstant                  = "Number of entries fetched per source request"
	resolveExistingFlagNameConstant            = "resolve-existing"
	resolveExistingFlagUsageConstant           = "Reuse destination entries that already carry a matching source identifier"
	debugFlagNameConstant                      = "debug"
	debugFlagUsageConstant                     = "Enable debug logging"
	defaultHTTPTimeoutConstant                 = 30 * time.Second
	runIdentifierFieldConstant                 = "run_id"
	sourcePasswordResolutionErrorTemplate      = "unable to resolve source password: %w"
	destinationKeyResolutionErrorTemplate      = "unable to resolve destination API key: %w"
	requestExecutorCreationErrorTemplate       = "unable to construct request executor: %w"
	sourceClientCreationErrorTemplate          = "unable to construct source client: %w"
	destinationClientCreationErrorTemplate     = "unable to construct destination client: %w"
	contentTypeNotPlannedErrorTemplateConstant = "content type %s is not part of the migration plan"
	migrationExecutionErrorTemplateConstant    = "content migration failed: %w"
	migrationCompletedMessageConstant          = "Content migration completed"
	migrationWarningsMessageConstant           = "Content migration finished with warnings"
	migrationFailedMessageConstant             = "Content migration failed"
	createdEntriesFieldConstant                = "created_entries"
	linkedEntriesFieldConstant                 = "linked_entries"
	uploadedAssetsFieldConstant                = "uploaded_assets"
	failedEntriesFieldConstant                 = "failed_entries"
	warningsFieldConstant                      = "warnings"
)

// LoggerProvider supplies a zap logger instance. The argument reports whether
// debug logging was requested through the flag, configuration, or command
// context, so providers can hand back a logger whose core admits debug output.
type LoggerProvider func(debugLoggingEnabled bool) *zap.Logger

// ServiceProvider constructs a migration executor from dependencies.
type ServiceProvider func(dependencies ServiceDependencies) (MigrationExecutor, error)

// PlanLoader reads a migration plan from disk.
type PlanLoader func(planPath string) (plan.Plan, error)

type commandOptions struct {
	configuration       CommandConfiguration
	contentTypeFilter   string
	debugLoggingEnabled bool
}

// CommandBuilder assembles the migrate Cobra command.
type CommandBuilder struct {
	LoggerProvider        LoggerProvider
	Transport             httpexec.HTTPTransport
	ServiceProvider       ServiceProvider
	PlanLoader            PlanLoader
	CredentialResolver    CredentialResolver
	ConfigurationProvider func() CommandConfiguration
}

// Build constructs the migrate command.
func (builder *CommandBuilder) Build() (*cobra.Command, error) {
	command := &cobra.Command{
		Use:           commandUseConstant,
		Short:         commandShortDescriptionConstant,
		Long:          commandLongDescriptionConstant,
		SilenceErrors: true,
		SilenceUsage:  true,
		Args:          cobra.NoArgs,
		RunE:          builder.runMigrate,
	}

	defaults := DefaultCommandConfiguration()
	command.Flags().String(planFlagNameConstant, defaults.PlanPath, planFlagUsageConstant)
	command.Flags().String(contentTypeFlagNameConstant, "", contentTypeFlagUsageConstant)
	command.Flags().Int(pageSizeFlagNameConstant, defaults.PageSize, pageSizeFlagUsageConstant)
	command.Flags().Bool(resolveExistingFlagNameConstant, defaults.ResolveExisting, resolveExistingFlagUsageConstant)
	command.Flags().Bool(debugFlagNameConstant, defaults.EnableDebugLogging, debugFlagUsageConstant)

	return command, nil
}

func (builder *CommandBuilder) runMigrate(command *cobra.Command, arguments []string) error {
	options, optionsError := builder.parseOptions(command, arguments)
	if optionsError != nil {
		return optionsError
	}

	logger := builder.resolveLogger(options.debugLoggingEnabled)
	logger = logger.With(zap.String(runIdentifierFieldConstant, uuid.NewString()))

	sourcePassword, sourcePasswordError := builder.resolveCredential(options.configuration.Source.AdministratorPassword)
	if sourcePasswordError != nil {
		return fmt.Errorf(sourcePasswordResolutionErrorTemplate, sourcePasswordError)
	}

	destinationKey, destinationKeyError := builder.resolveCredential(options.configuration.Destination.APIKey)
	if destinationKeyError != nil {
		return fmt.Errorf(destinationKeyResolutionErrorTemplate, destinationKeyError)
	}

	requestExecutor, executorError := httpexec.NewRequestExecutor(logger, builder.resolveTransport())
	if executorError != nil {
		return fmt.Errorf(requestExecutorCreationErrorTemplate, executorError)
	}

	sourceClient, sourceClientError := strapi3.NewClient(requestExecutor, strapi3.ClientConfiguration{
		BaseURL:               options.configuration.Source.BaseURL,
		AdministratorEmail:    options.configuration.Source.AdministratorEmail,
		AdministratorPassword: sourcePassword,
	})
	if sourceClientError != nil {
		return fmt.Errorf(sourceClientCreationErrorTemplate, sourceClientError)
	}

	destinationClient, destinationClientError := strapi4.NewClient(requestExecutor, strapi4.ClientConfiguration{
		BaseURL: options.configuration.Destination.BaseURL,
		APIKey:  destinationKey,
	})
	if destinationClientError != nil {
		return fmt.Errorf(destinationClientCreationErrorTemplate, destinationClientError)
	}

	loadedPlan, planError := builder.resolvePlanLoader()(options.configuration.PlanPath)
	if planError != nil {
		return planError
	}

	selectedPlan, selectionError := filterPlanContentTypes(loadedPlan, options.contentTypeFilter)
	if selectionError != nil {
		return selectionError
	}

	service, serviceError := builder.resolveService(ServiceDependencies{
		Logger:      logger,
		Source:      sourceClient,
		Destination: destinationClient,
	})
	if serviceError != nil {
		return serviceError
	}

	result, migrationError := service.Execute(command.Context(), MigrationOptions{
		Plan:            selectedPlan,
		PageSize:        options.configuration.PageSize,
		ResolveExisting: options.configuration.ResolveExisting,
	})
	if migrationError != nil {
		if errors.Is(migrationError, context.Canceled) || errors.Is(migrationError, context.DeadlineExceeded) {
			return migrationError
		}
		builder.logMigrationFailure(logger, migrationError)
		return fmt.Errorf(migrationExecutionErrorTemplateConstant, migrationError)
	}

	builder.logSummary(logger, result)

	return nil
}

func (builder *CommandBuilder) parseOptions(command *cobra.Command, _ []string) (commandOptions, error) {
	configuration := builder.resolveConfiguration()

	debugEnabled := configuration.EnableDebugLogging
	if command != nil {
		contextAccessor := utils.NewCommandContextAccessor()
		if logLevel, available := contextAccessor.LogLevel(command.Context()); available {
			if strings.EqualFold(string(logLevel), string(utils.LogLevelDebug)) {
				debugEnabled = true
			}
		}
	}

	contentTypeFilter := ""

	if command != nil {
		if command.Flags().Changed(planFlagNameConstant) {
			flagValue, _ := command.Flags().GetString(planFlagNameConstant)
			configuration.PlanPath = strings.TrimSpace(flagValue)
		}
		if command.Flags().Changed(pageSizeFlagNameConstant) {
			flagValue, _ := command.Flags().GetInt(pageSizeFlagNameConstant)
			configuration.PageSize = flagValue
		}
		if command.Flags().Changed(resolveExistingFlagNameConstant) {
			flagValue, _ := command.Flags().GetBool(resolveExistingFlagNameConstant)
			configuration.ResolveExisting = flagValue
		}
		if command.Flags().Changed(debugFlagNameConstant) {
			flagValue, _ := command.Flags().GetBool(debugFlagNameConstant)
			debugEnabled = flagValue
		}
		if command.Flags().Changed(contentTypeFlagNameConstant) {
			flagValue, _ := command.Flags().GetString(contentTypeFlagNameConstant)
			contentTypeFilter = strings.TrimSpace(flagValue)
		}
	}

	configuration = configuration.Sanitize()

	return commandOptions{
		configuration:       configuration,
		contentTypeFilter:   contentTypeFilter,
		debugLoggingEnabled: debugEnabled,
	}, nil
}

func filterPlanContentTypes(loadedPlan plan.Plan, contentTypeFilter string) (plan.Plan, error) {
	if len(contentTypeFilter) == 0 {
		return loadedPlan, nil
	}

	for _, contentType := range loadedPlan.ContentTypes {
		if contentType.Source == contentTypeFilter {
			return plan.Plan{ContentTypes: []plan.ContentType{contentType}}, nil
		}
	}

	return plan.Plan{}, fmt.Errorf(contentTypeNotPlannedErrorTemplateConstant, contentTypeFilter)
}

func (builder *CommandBuilder) resolveLogger(enableDebug bool) *zap.Logger {
	var logger *zap.Logger
	if builder.LoggerProvider != nil {
		logger = builder.LoggerProvider(enableDebug)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return logger
}

func (builder *CommandBuilder) resolveTransport() httpexec.HTTPTransport {
	if builder.Transport != nil {
		return builder.Transport
	}
	return &http.Client{Timeout: defaultHTTPTimeoutConstant}
}

func (builder *CommandBuilder) resolvePlanLoader() PlanLoader {
	if builder.PlanLoader != nil {
		return builder.PlanLoader
	}
	return plan.LoadPlan
}

func (builder *CommandBuilder) resolveCredential(configuredValue string) (string, error) {
	source, parseError := ParseCredentialSource(configuredValue)
	if parseError != nil {
		return "", parseError
	}
	return builder.resolveCredentialResolver().ResolveCredential(source)
}

func (builder *CommandBuilder) resolveCredentialResolver() CredentialResolver {
	if builder.CredentialResolver != nil {
		return builder.CredentialResolver
	}
	return NewCredentialResolver(nil, nil)
}

func (builder *CommandBuilder) resolveService(dependencies ServiceDependencies) (MigrationExecutor, error) {
	if builder.ServiceProvider != nil {
		return builder.ServiceProvider(dependencies)
	}
	return NewService(dependencies)
}

func (builder *CommandBuilder) resolveConfiguration() CommandConfiguration {
	if builder.ConfigurationProvider == nil {
		return DefaultCommandConfiguration()
	}

	provided := builder.ConfigurationProvider()
	return provided.Sanitize()
}

func (builder *CommandBuilder) logMigrationFailure(logger *zap.Logger, failure error) {
	if logger == nil {
		return
	}

	logger.Error(migrationFailedMessageConstant, zap.Error(failure))
}

func (builder *CommandBuilder) logSummary(logger *zap.Logger, result MigrationResult) {
	if logger == nil {
		return
	}

	logger.Info(
		migrationCompletedMessageConstant,
		zap.Int(createdEntriesFieldConstant, result.CreatedEntries()),
		zap.Int(linkedEntriesFieldConstant, result.LinkedEntries()),
		zap.Int(uploadedAssetsFieldConstant, result.UploadedAssets()),
		zap.Int(failedEntriesFieldConstant, result.FailedEntries()),
	)

	warnings := result.Warnings()
	if len(warnings) > 0 {
		logger.Warn(
			migrationWarningsMessageConstant,
			zap.Strings(warningsFieldConstant, warnings),
		)
	}
}
