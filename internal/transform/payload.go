package transform

import "sort"

// ReferenceResolver maps a source identifier onto its destination identifier for a target content type.
type ReferenceResolver func(targetContentType string, sourceIdentifier int64) (int64, bool)

// AssetResolver transfers the media asset at the given source URL and returns its destination identifier.
type AssetResolver func(assetURL string) (int64, error)

// AssetFailure records a media element that could not be transferred.
type AssetFailure struct {
	FieldName string
	AssetURL  string
	Cause     error
}

// DanglingReference identifies a relationship value whose target has no destination identifier.
type DanglingReference struct {
	FieldName         string
	TargetContentType string
	SourceIdentifier  int64
}

// CreationPayload carries the attributes sent when a destination entry is first created.
type CreationPayload struct {
	Fields        map[string]any
	AssetFailures []AssetFailure
}

// LinkPayload carries the relationship and component attributes patched onto an existing destination entry.
type LinkPayload struct {
	Fields        map[string]any
	Dangling      []DanglingReference
	AssetFailures []AssetFailure
}

// BuildCreationPayload produces the pass-1 attributes for one source entry.
// Metadata, relationship, and component fields are stripped; media fields are
// resolved immediately and replaced by destination identifiers. A media
// element that fails to resolve leaves its field empty and is reported.
func BuildCreationPayload(attributes map[string]any, relationshipTargets map[string]string, resolveAsset AssetResolver) CreationPayload {
	payload := CreationPayload{Fields: make(map[string]any, len(attributes))}

	for _, fieldName := range sortedFieldNames(attributes) {
		fieldValue := attributes[fieldName]

		if isMetadataField(fieldName) {
			continue
		}
		if _, isRelationship := relationshipTargets[fieldName]; isRelationship {
			continue
		}

		if assetURL, isMedia := mediaURL(fieldValue); isMedia {
			destinationIdentifier, resolveError := resolveAsset(assetURL)
			if resolveError != nil {
				payload.AssetFailures = append(payload.AssetFailures, AssetFailure{FieldName: fieldName, AssetURL: assetURL, Cause: resolveError})
				continue
			}
			payload.Fields[fieldName] = destinationIdentifier
			continue
		}

		if assetURLs, isMediaList := mediaURLList(fieldValue); isMediaList {
			destinationIdentifiers, assetFailures := resolveAssetList(fieldName, assetURLs, resolveAsset)
			payload.AssetFailures = append(payload.AssetFailures, assetFailures...)
			if len(destinationIdentifiers) > 0 {
				payload.Fields[fieldName] = destinationIdentifiers
			}
			continue
		}

		if isComponentValue(fieldValue) {
			continue
		}

		payload.Fields[fieldName] = fieldValue
	}

	return payload
}

// BuildLinkPayload produces the pass-2 attributes for one source entry.
// Only relationship and component fields are included: relationship values are
// rewritten into connect payloads of destination identifiers, and component
// members are resolved one level deep. Unresolvable references are omitted and
// reported once each.
func BuildLinkPayload(attributes map[string]any, relationshipTargets map[string]string, resolveReference ReferenceResolver, resolveAsset AssetResolver) LinkPayload {
	payload := LinkPayload{Fields: make(map[string]any)}

	for _, fieldName := range sortedFieldNames(attributes) {
		fieldValue := attributes[fieldName]

		if isMetadataField(fieldName) {
			continue
		}

		if targetContentType, isRelationship := relationshipTargets[fieldName]; isRelationship {
			if isEmptyRelationshipValue(fieldValue) {
				continue
			}
			resolvedValue, included := resolveRelationshipValue(fieldName, fieldValue, targetContentType, resolveReference, &payload.Dangling)
			if included {
				payload.Fields[fieldName] = resolvedValue
			}
			continue
		}

		if !isComponentValue(fieldValue) {
			continue
		}

		if componentObject, isObject := fieldValue.(map[string]any); isObject {
			payload.Fields[fieldName] = resolveComponent(fieldName, componentObject, relationshipTargets, resolveReference, resolveAsset, &payload)
			continue
		}

		componentList := fieldValue.([]any)
		resolvedComponents := make([]any, 0, len(componentList))
		for _, componentElement := range componentList {
			componentObject := componentElement.(map[string]any)
			resolvedComponents = append(resolvedComponents, resolveComponent(fieldName, componentObject, relationshipTargets, resolveReference, resolveAsset, &payload))
		}
		payload.Fields[fieldName] = resolvedComponents
	}

	return payload
}

// resolveRelationshipValue rewrites one relationship value into its destination form.
// List values always produce a connect payload, possibly with no surviving
// connections; single values fall back to an explicit null when unresolved.
func resolveRelationshipValue(fieldName string, fieldValue any, targetContentType string, resolveReference ReferenceResolver, danglingSink *[]DanglingReference) (any, bool) {
	_, isList := fieldValue.([]any)

	sourceIdentifiers := referenceIdentifiers(fieldValue)
	if len(sourceIdentifiers) == 0 && !isList {
		return nil, false
	}

	resolvedIdentifiers := make([]int64, 0, len(sourceIdentifiers))
	for _, sourceIdentifier := range sourceIdentifiers {
		destinationIdentifier, found := resolveReference(targetContentType, sourceIdentifier)
		if !found {
			*danglingSink = append(*danglingSink, DanglingReference{
				FieldName:         fieldName,
				TargetContentType: targetContentType,
				SourceIdentifier:  sourceIdentifier,
			})
			continue
		}
		resolvedIdentifiers = append(resolvedIdentifiers, destinationIdentifier)
	}

	if isList {
		return connectPayload(resolvedIdentifiers), true
	}
	if len(resolvedIdentifiers) == 0 {
		return nil, true
	}
	return connectPayload(resolvedIdentifiers), true
}

// resolveComponent copies one component object, rewriting its direct relationship
// and media members. Members nested deeper pass through untouched.
func resolveComponent(componentFieldName string, component map[string]any, relationshipTargets map[string]string, resolveReference ReferenceResolver, resolveAsset AssetResolver, payload *LinkPayload) map[string]any {
	resolvedComponent := make(map[string]any, len(component))

	for _, memberName := range sortedFieldNames(component) {
		memberValue := component[memberName]
		memberPath := joinFieldPath(componentFieldName, memberName)

		if targetContentType, isRelationship := relationshipTargets[memberName]; isRelationship {
			if isEmptyRelationshipValue(memberValue) {
				resolvedComponent[memberName] = memberValue
				continue
			}
			resolvedValue, included := resolveRelationshipValue(memberPath, memberValue, targetContentType, resolveReference, &payload.Dangling)
			if included {
				resolvedComponent[memberName] = resolvedValue
			} else {
				resolvedComponent[memberName] = memberValue
			}
			continue
		}

		if assetURL, isMedia := mediaURL(memberValue); isMedia {
			destinationIdentifier, resolveError := resolveAsset(assetURL)
			if resolveError != nil {
				payload.AssetFailures = append(payload.AssetFailures, AssetFailure{FieldName: memberPath, AssetURL: assetURL, Cause: resolveError})
				continue
			}
			resolvedComponent[memberName] = destinationIdentifier
			continue
		}

		if assetURLs, isMediaList := mediaURLList(memberValue); isMediaList {
			destinationIdentifiers, assetFailures := resolveAssetList(memberPath, assetURLs, resolveAsset)
			payload.AssetFailures = append(payload.AssetFailures, assetFailures...)
			if len(destinationIdentifiers) > 0 {
				resolvedComponent[memberName] = destinationIdentifiers
			}
			continue
		}

		resolvedComponent[memberName] = memberValue
	}

	return resolvedComponent
}

func resolveAssetList(fieldName string, assetURLs []string, resolveAsset AssetResolver) ([]int64, []AssetFailure) {
	destinationIdentifiers := make([]int64, 0, len(assetURLs))
	var assetFailures []AssetFailure

	for _, assetURL := range assetURLs {
		destinationIdentifier, resolveError := resolveAsset(assetURL)
		if resolveError != nil {
			assetFailures = append(assetFailures, AssetFailure{FieldName: fieldName, AssetURL: assetURL, Cause: resolveError})
			continue
		}
		destinationIdentifiers = append(destinationIdentifiers, destinationIdentifier)
	}

	return destinationIdentifiers, assetFailures
}

func sortedFieldNames(attributes map[string]any) []string {
	fieldNames := make([]string, 0, len(attributes))
	for fieldName := range attributes {
		fieldNames = append(fieldNames, fieldName)
	}
	sort.Strings(fieldNames)
	return fieldNames
}
