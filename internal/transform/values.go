package transform

import "strings"

const (
	entryIdentifierFieldNameConstant = "id"
	createdAtFieldNameConstant       = "created_at"
	updatedAtFieldNameConstant       = "updated_at"
	mediaURLFieldNameConstant        = "url"
	connectKeyConstant               = "connect"
	pathSeparatorConstant            = "."
)

var metadataFieldNames = map[string]struct{}{
	entryIdentifierFieldNameConstant: {},
	createdAtFieldNameConstant:       {},
	updatedAtFieldNameConstant:       {},
}

func isMetadataField(fieldName string) bool {
	_, isMetadata := metadataFieldNames[fieldName]
	return isMetadata
}

// mediaURL reports the source URL of a media-shaped object value.
func mediaURL(value any) (string, bool) {
	objectValue, isObject := value.(map[string]any)
	if !isObject {
		return "", false
	}

	rawURL, hasURL := objectValue[mediaURLFieldNameConstant]
	if !hasURL {
		return "", false
	}

	urlText, isText := rawURL.(string)
	if !isText || len(strings.TrimSpace(urlText)) == 0 {
		return "", false
	}

	return urlText, true
}

// mediaURLList reports the source URLs when every element of a non-empty list is media-shaped.
func mediaURLList(value any) ([]string, bool) {
	listValue, isList := value.([]any)
	if !isList || len(listValue) == 0 {
		return nil, false
	}

	urls := make([]string, 0, len(listValue))
	for _, element := range listValue {
		elementURL, isMedia := mediaURL(element)
		if !isMedia {
			return nil, false
		}
		urls = append(urls, elementURL)
	}

	return urls, true
}

// isComponentValue reports whether a value is an embedded object or object list that is not media-shaped.
func isComponentValue(value any) bool {
	if _, isMedia := mediaURL(value); isMedia {
		return false
	}
	if _, isMediaList := mediaURLList(value); isMediaList {
		return false
	}

	if _, isObject := value.(map[string]any); isObject {
		return true
	}

	listValue, isList := value.([]any)
	if !isList || len(listValue) == 0 {
		return false
	}
	for _, element := range listValue {
		if _, isObject := element.(map[string]any); !isObject {
			return false
		}
	}
	return true
}

// referenceIdentifier extracts the source identifier carried by a relationship value element.
// Accepted shapes are bare numbers and objects holding a numeric id member.
func referenceIdentifier(value any) (int64, bool) {
	switch typedValue := value.(type) {
	case float64:
		return int64(typedValue), true
	case int:
		return int64(typedValue), true
	case int64:
		return typedValue, true
	case map[string]any:
		innerValue, hasIdentifier := typedValue[entryIdentifierFieldNameConstant]
		if !hasIdentifier {
			return 0, false
		}
		return referenceIdentifier(innerValue)
	default:
		return 0, false
	}
}

// referenceIdentifiers extracts every source identifier carried by a relationship value.
func referenceIdentifiers(value any) []int64 {
	if value == nil {
		return nil
	}

	if listValue, isList := value.([]any); isList {
		identifiers := make([]int64, 0, len(listValue))
		for _, element := range listValue {
			if identifier, extracted := referenceIdentifier(element); extracted {
				identifiers = append(identifiers, identifier)
			}
		}
		return identifiers
	}

	if identifier, extracted := referenceIdentifier(value); extracted {
		return []int64{identifier}
	}

	return nil
}

// isEmptyRelationshipValue reports values the patch should skip entirely, matching absent fields.
func isEmptyRelationshipValue(value any) bool {
	if value == nil {
		return true
	}
	if listValue, isList := value.([]any); isList {
		return len(listValue) == 0
	}
	return false
}

func connectPayload(destinationIdentifiers []int64) map[string]any {
	connections := make([]any, 0, len(destinationIdentifiers))
	for _, destinationIdentifier := range destinationIdentifiers {
		connections = append(connections, map[string]any{entryIdentifierFieldNameConstant: destinationIdentifier})
	}
	return map[string]any{connectKeyConstant: connections}
}

func joinFieldPath(parentFieldName string, childFieldName string) string {
	if len(parentFieldName) == 0 {
		return childFieldName
	}
	return parentFieldName + pathSeparatorConstant + childFieldName
}
