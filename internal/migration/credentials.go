package migration

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/awatertrevi/strapi-migrator/internal/utils"
)

const (
	credentialSourceSeparatorConstant             = ":"
	environmentCredentialSourceTypeValueConstant  = "env"
	fileCredentialSourceTypeValueConstant         = "file"
	literalCredentialSourceTypeValueConstant      = "literal"
	credentialValueMissingErrorMessageConstant    = "credential value must be provided"
	environmentNameMissingErrorMessageConstant    = "environment variable name must be provided"
	credentialFilePathMissingErrorMessageConstant = "credential file path must be provided"
	environmentLookupNilErrorMessageConstant      = "environment lookup function not configured"
	fileReaderNilErrorMessageConstant             = "file reader function not configured"
	environmentCredentialMissingTemplateConstant  = "environment variable %s is not set"
	credentialFileReadErrorTemplateConstant       = "unable to read credential file %s: %w"
	credentialFileEmptyErrorTemplateConstant      = "credential file %s is empty"
	unsupportedCredentialSourceTemplateConstant   = "unsupported credential source type %q"
)

// CredentialSourceType enumerates the supported credential retrieval mechanisms.
type CredentialSourceType string

// Credential source type enumerations.
const (
	CredentialSourceTypeLiteral     CredentialSourceType = CredentialSourceType(literalCredentialSourceTypeValueConstant)
	CredentialSourceTypeEnvironment CredentialSourceType = CredentialSourceType(environmentCredentialSourceTypeValueConstant)
	CredentialSourceTypeFile        CredentialSourceType = CredentialSourceType(fileCredentialSourceTypeValueConstant)
)

// CredentialSource specifies where a secret value comes from.
type CredentialSource struct {
	Type      CredentialSourceType
	Reference string
}

// CredentialResolver retrieves secret values from configured sources.
type CredentialResolver interface {
	ResolveCredential(source CredentialSource) (string, error)
}

// EnvironmentLookup obtains an environment variable value.
type EnvironmentLookup func(key string) (string, bool)

// FileReader reads the contents of a file path.
type FileReader func(path string) ([]byte, error)

// NewCredentialResolver creates a credential resolver with optional dependency overrides.
func NewCredentialResolver(environmentLookup EnvironmentLookup, fileReader FileReader) CredentialResolver {
	resolvedEnvironmentLookup := environmentLookup
	if resolvedEnvironmentLookup == nil {
		resolvedEnvironmentLookup = os.LookupEnv
	}

	resolvedFileReader := fileReader
	if resolvedFileReader == nil {
		resolvedFileReader = os.ReadFile
	}

	return &credentialResolver{
		environmentLookup: resolvedEnvironmentLookup,
		fileReader:        resolvedFileReader,
		pathExpander:      utils.NewHomePathExpander(),
	}
}

// ParseCredentialSource interprets textual credential declarations. Values
// carrying an env: or file: prefix resolve through the named source; anything
// else is used verbatim so passwords containing colons survive intact.
func ParseCredentialSource(sourceValue string) (CredentialSource, error) {
	trimmedValue := strings.TrimSpace(sourceValue)
	if len(trimmedValue) == 0 {
		return CredentialSource{}, errors.New(credentialValueMissingErrorMessageConstant)
	}

	components := strings.SplitN(trimmedValue, credentialSourceSeparatorConstant, 2)
	if len(components) == 1 {
		return CredentialSource{Type: CredentialSourceTypeLiteral, Reference: trimmedValue}, nil
	}

	sourceType := strings.ToLower(strings.TrimSpace(components[0]))
	reference := strings.TrimSpace(components[1])

	switch sourceType {
	case environmentCredentialSourceTypeValueConstant:
		if len(reference) == 0 {
			return CredentialSource{}, errors.New(environmentNameMissingErrorMessageConstant)
		}
		return CredentialSource{Type: CredentialSourceTypeEnvironment, Reference: reference}, nil
	case fileCredentialSourceTypeValueConstant:
		if len(reference) == 0 {
			return CredentialSource{}, errors.New(credentialFilePathMissingErrorMessageConstant)
		}
		return CredentialSource{Type: CredentialSourceTypeFile, Reference: reference}, nil
	default:
		return CredentialSource{Type: CredentialSourceTypeLiteral, Reference: trimmedValue}, nil
	}
}

type credentialResolver struct {
	environmentLookup EnvironmentLookup
	fileReader        FileReader
	pathExpander      *utils.HomePathExpander
}

func (resolver *credentialResolver) ResolveCredential(source CredentialSource) (string, error) {
	switch source.Type {
	case CredentialSourceTypeLiteral:
		return source.Reference, nil
	case CredentialSourceTypeEnvironment:
		if resolver.environmentLookup == nil {
			return "", errors.New(environmentLookupNilErrorMessageConstant)
		}
		value, found := resolver.environmentLookup(source.Reference)
		if !found {
			return "", fmt.Errorf(environmentCredentialMissingTemplateConstant, source.Reference)
		}
		trimmedValue := strings.TrimSpace(value)
		if len(trimmedValue) == 0 {
			return "", fmt.Errorf(environmentCredentialMissingTemplateConstant, source.Reference)
		}
		return trimmedValue, nil
	case CredentialSourceTypeFile:
		if resolver.fileReader == nil {
			return "", errors.New(fileReaderNilErrorMessageConstant)
		}
		credentialFilePath := resolver.pathExpander.Expand(source.Reference)
		contents, readError := resolver.fileReader(credentialFilePath)
		if readError != nil {
			return "", fmt.Errorf(credentialFileReadErrorTemplateConstant, credentialFilePath, readError)
		}
		trimmedValue := strings.TrimSpace(string(contents))
		if len(trimmedValue) == 0 {
			return "", fmt.Errorf(credentialFileEmptyErrorTemplateConstant, credentialFilePath)
		}
		return trimmedValue, nil
	default:
		return "", fmt.Errorf(unsupportedCredentialSourceTemplateConstant, source.Type)
	}
}
