package plan

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	planLoadErrorTemplateConstant                = "failed to load migration plan: %w"
	planParseErrorTemplateConstant               = "failed to parse migration plan: %w"
	planPathRequiredMessageConstant              = "migration plan path must be provided"
	planEmptyContentTypesMessageConstant         = "migration plan must define at least one content type"
	planSourceMissingTemplateConstant            = "migration plan content type %d missing source name"
	planDuplicateDestinationTemplateConstant     = "migration plan defines duplicate destination %s"
	planRelationshipFieldMissingTemplateConstant = "content type %s declares a relationship without a field name"
	planDuplicateRelationshipTemplateConstant    = "content type %s declares duplicate relationship field %s"
)

// Relationship names an attribute field holding references to entries of a target content type.
// An empty target defaults to the field name, matching the source schema convention.
type Relationship struct {
	Field  string `yaml:"field" json:"field"`
	Target string `yaml:"target" json:"target"`
}

// ContentType describes one content type to migrate.
// Destination defaults to Source when omitted.
type ContentType struct {
	Source        string         `yaml:"source" json:"source"`
	Destination   string         `yaml:"destination" json:"destination"`
	Relationships []Relationship `yaml:"relationships" json:"relationships"`
}

// Plan lists every content type covered by a migration run, in execution order.
type Plan struct {
	ContentTypes []ContentType `yaml:"content_types" json:"content_types"`
}

// LoadPlan reads the migration plan from disk, applies defaults, and performs basic validation.
// The file may declare content_types at the top level or nested under a migration key.
func LoadPlan(filePath string) (Plan, error) {
	trimmedPath := strings.TrimSpace(filePath)
	if len(trimmedPath) == 0 {
		return Plan{}, errors.New(planPathRequiredMessageConstant)
	}

	contentBytes, readError := os.ReadFile(trimmedPath)
	if readError != nil {
		return Plan{}, fmt.Errorf(planLoadErrorTemplateConstant, readError)
	}

	var migrationPlan Plan
	if unmarshalError := yaml.Unmarshal(contentBytes, &migrationPlan); unmarshalError != nil {
		var wrapper struct {
			Migration Plan `yaml:"migration" json:"migration"`
		}
		if nestedError := yaml.Unmarshal(contentBytes, &wrapper); nestedError == nil {
			if len(wrapper.Migration.ContentTypes) > 0 {
				migrationPlan = wrapper.Migration
			} else {
				return Plan{}, fmt.Errorf(planParseErrorTemplateConstant, unmarshalError)
			}
		} else {
			return Plan{}, fmt.Errorf(planParseErrorTemplateConstant, unmarshalError)
		}
	} else if len(migrationPlan.ContentTypes) == 0 {
		var wrapper struct {
			Migration Plan `yaml:"migration" json:"migration"`
		}
		if nestedError := yaml.Unmarshal(contentBytes, &wrapper); nestedError == nil {
			if len(wrapper.Migration.ContentTypes) > 0 {
				migrationPlan = wrapper.Migration
			}
		}
	}

	if len(migrationPlan.ContentTypes) == 0 {
		return Plan{}, errors.New(planEmptyContentTypesMessageConstant)
	}

	seenDestinations := make(map[string]struct{}, len(migrationPlan.ContentTypes))
	for contentTypeIndex := range migrationPlan.ContentTypes {
		normalizedContentType, normalizeError := normalizeContentType(migrationPlan.ContentTypes[contentTypeIndex], contentTypeIndex)
		if normalizeError != nil {
			return Plan{}, normalizeError
		}

		if _, exists := seenDestinations[normalizedContentType.Destination]; exists {
			return Plan{}, fmt.Errorf(planDuplicateDestinationTemplateConstant, normalizedContentType.Destination)
		}
		seenDestinations[normalizedContentType.Destination] = struct{}{}

		migrationPlan.ContentTypes[contentTypeIndex] = normalizedContentType
	}

	return migrationPlan, nil
}

// RelationshipTargets maps each declared relationship field to its target content type.
func (contentType ContentType) RelationshipTargets() map[string]string {
	targets := make(map[string]string, len(contentType.Relationships))
	for _, relationship := range contentType.Relationships {
		targets[relationship.Field] = relationship.Target
	}
	return targets
}

func normalizeContentType(contentType ContentType, contentTypeIndex int) (ContentType, error) {
	contentType.Source = strings.TrimSpace(contentType.Source)
	if len(contentType.Source) == 0 {
		return ContentType{}, fmt.Errorf(planSourceMissingTemplateConstant, contentTypeIndex)
	}

	contentType.Destination = strings.TrimSpace(contentType.Destination)
	if len(contentType.Destination) == 0 {
		contentType.Destination = contentType.Source
	}

	seenRelationshipFields := make(map[string]struct{}, len(contentType.Relationships))
	for relationshipIndex := range contentType.Relationships {
		relationship := contentType.Relationships[relationshipIndex]

		relationship.Field = strings.TrimSpace(relationship.Field)
		if len(relationship.Field) == 0 {
			return ContentType{}, fmt.Errorf(planRelationshipFieldMissingTemplateConstant, contentType.Source)
		}

		if _, exists := seenRelationshipFields[relationship.Field]; exists {
			return ContentType{}, fmt.Errorf(planDuplicateRelationshipTemplateConstant, contentType.Source, relationship.Field)
		}
		seenRelationshipFields[relationship.Field] = struct{}{}

		relationship.Target = strings.TrimSpace(relationship.Target)
		if len(relationship.Target) == 0 {
			relationship.Target = relationship.Field
		}

		contentType.Relationships[relationshipIndex] = relationship
	}

	return contentType, nil
}
