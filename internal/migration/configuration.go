package migration

import (
	"strings"

	"github.com/awatertrevi/strapi-migrator/internal/utils"
)

const (
	defaultPlanPathConstant                 = "migration.yaml"
	defaultPageSizeConstant                 = 10
	defaultSourcePasswordReferenceConstant  = "env:STRAPI_3_PASSWORD"
	defaultDestinationKeyReferenceConstant  = "env:STRAPI_4_API_KEY"
	sourceConfigurationKeyConstant          = "source"
	destinationConfigurationKeyConstant     = "destination"
	passwordConfigurationKeyConstant        = "password"
	apiKeyConfigurationKeyConstant          = "api_key"
	planConfigurationKeyConstant            = "plan"
	pageSizeConfigurationKeyConstant        = "page_size"
	resolveExistingConfigurationKeyConstant = "resolve_existing"
	debugConfigurationKeyConstant           = "debug"
)

// SourceConfiguration identifies the Strapi 3 installation and its administrator account.
type SourceConfiguration struct {
	BaseURL               string `mapstructure:"base_url"`
	AdministratorEmail    string `mapstructure:"email"`
	AdministratorPassword string `mapstructure:"password"`
}

// DestinationConfiguration identifies the Strapi 4 installation and its API key.
type DestinationConfiguration struct {
	BaseURL string `mapstructure:"base_url"`
	APIKey  string `mapstructure:"api_key"`
}

// CommandConfiguration captures persisted configuration for content migration.
type CommandConfiguration struct {
	Source             SourceConfiguration      `mapstructure:"source"`
	Destination        DestinationConfiguration `mapstructure:"destination"`
	PlanPath           string                   `mapstructure:"plan"`
	PageSize           int                      `mapstructure:"page_size"`
	ResolveExisting    bool                     `mapstructure:"resolve_existing"`
	EnableDebugLogging bool                     `mapstructure:"debug"`
}

// DefaultCommandConfiguration returns baseline configuration values for content migration.
// Credentials default to environment references so unconfigured runs read
// STRAPI_3_PASSWORD and STRAPI_4_API_KEY.
func DefaultCommandConfiguration() CommandConfiguration {
	return CommandConfiguration{
		Source:      SourceConfiguration{AdministratorPassword: defaultSourcePasswordReferenceConstant},
		Destination: DestinationConfiguration{APIKey: defaultDestinationKeyReferenceConstant},
		PlanPath:    defaultPlanPathConstant,
		PageSize:    defaultPageSizeConstant,
	}
}

// DefaultConfigurationValues exposes migration defaults keyed beneath the provided configuration root.
func DefaultConfigurationValues(rootKey string) map[string]any {
	defaults := DefaultCommandConfiguration()
	return map[string]any{
		rootKey + "." + planConfigurationKeyConstant:                                               defaults.PlanPath,
		rootKey + "." + pageSizeConfigurationKeyConstant:                                           defaults.PageSize,
		rootKey + "." + resolveExistingConfigurationKeyConstant:                                    defaults.ResolveExisting,
		rootKey + "." + debugConfigurationKeyConstant:                                              defaults.EnableDebugLogging,
		rootKey + "." + sourceConfigurationKeyConstant + "." + passwordConfigurationKeyConstant:    defaults.Source.AdministratorPassword,
		rootKey + "." + destinationConfigurationKeyConstant + "." + apiKeyConfigurationKeyConstant: defaults.Destination.APIKey,
	}
}

// Sanitize trims configured values, restores defaults for empty entries, and
// expands a leading tilde in the plan path.
func (configuration CommandConfiguration) Sanitize() CommandConfiguration {
	sanitized := configuration
	sanitized.Source.BaseURL = strings.TrimSpace(configuration.Source.BaseURL)
	sanitized.Source.AdministratorEmail = strings.TrimSpace(configuration.Source.AdministratorEmail)
	sanitized.Source.AdministratorPassword = strings.TrimSpace(configuration.Source.AdministratorPassword)
	sanitized.Destination.BaseURL = strings.TrimSpace(configuration.Destination.BaseURL)
	sanitized.Destination.APIKey = strings.TrimSpace(configuration.Destination.APIKey)
	sanitized.PlanPath = strings.TrimSpace(configuration.PlanPath)
	if len(sanitized.PlanPath) == 0 {
		sanitized.PlanPath = defaultPlanPathConstant
	}
	sanitized.PlanPath = utils.NewHomePathExpander().Expand(sanitized.PlanPath)
	if sanitized.PageSize <= 0 {
		sanitized.PageSize = defaultPageSizeConstant
	}
	return sanitized
}
