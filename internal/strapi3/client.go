package strapi3

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"strings"

	"github.com/awatertrevi/strapi-migrator/internal/httpexec"
)

const (
	administratorLoginPathConstant          = "/admin/login"
	contentPathTemplateConstant             = "/%s"
	limitQueryParameterNameConstant         = "_limit"
	startQueryParameterNameConstant         = "_start"
	authorizationHeaderNameConstant         = "Authorization"
	bearerTokenTemplateConstant             = "Bearer %s"
	jsonContentTypeConstant                 = "application/json"
	entryIdentifierFieldNameConstant        = "id"
	defaultPageSizeConstant                 = 10
	baseURLFieldNameConstant                = "base_url"
	emailFieldNameConstant                  = "email"
	passwordFieldNameConstant               = "password"
	contentTypeFieldNameConstant            = "content_type"
	assetURLFieldNameConstant               = "asset_url"
	requiredValueMessageConstant            = "value required"
	executorNotConfiguredMessageConstant    = "strapi 3 request executor not configured"
	notAuthenticatedMessageConstant         = "strapi 3 session token missing; call SignIn first"
	sessionTokenMissingMessageConstant      = "login response carried no session token"
	entryIdentifierMissingTemplateConstant  = "entry at offset %d carries no numeric identifier"
	fallbackAssetFileNameConstant           = "asset"
	operationErrorMessageTemplateConstant   = "%s operation failed"
	operationErrorWithCauseTemplateConstant = "%s operation failed: %s"
	responseDecodingErrorTemplateConstant   = "%s response decoding failed: %s"
	payloadEncodingErrorTemplateConstant    = "%s payload encoding failed: %s"
	invalidInputErrorTemplateConstant       = "%s: %s"
	signInOperationNameConstant             = OperationName("SignIn")
	listEntriesOperationNameConstant        = OperationName("ListEntries")
	downloadAssetOperationNameConstant      = OperationName("DownloadAsset")
)

// OperationName describes a named Strapi 3 workflow supported by the client.
type OperationName string

// Entry carries one source entry with its raw attribute map.
type Entry struct {
	Identifier int64
	Attributes map[string]any
}

// AssetContent holds a downloaded media file ready for re-upload.
type AssetContent struct {
	FileName string
	Data     []byte
}

// ClientConfiguration identifies the source installation and its administrator account.
type ClientConfiguration struct {
	BaseURL               string
	AdministratorEmail    string
	AdministratorPassword string
}

// RequestExecutor is the minimal interface required from httpexec.RequestExecutor.
type RequestExecutor interface {
	Execute(executionContext context.Context, details httpexec.RequestDetails) (httpexec.RequestResult, error)
}

// Client coordinates Strapi 3 requests through httpexec.
type Client struct {
	executor      RequestExecutor
	configuration ClientConfiguration
	sessionToken  string
}

var (
	// ErrExecutorNotConfigured indicates the client was constructed without an executor.
	ErrExecutorNotConfigured = errors.New(executorNotConfiguredMessageConstant)
	// ErrNotAuthenticated indicates an authenticated operation ran before SignIn.
	ErrNotAuthenticated = errors.New(notAuthenticatedMessageConstant)
)

// InvalidInputError surfaces validation issues for operation inputs.
type InvalidInputError struct {
	FieldName string
	Message   string
}

// Error describes the invalid input.
func (inputError InvalidInputError) Error() string {
	return fmt.Sprintf(invalidInputErrorTemplateConstant, inputError.FieldName, inputError.Message)
}

// OperationError wraps request failures for Strapi 3 operations.
type OperationError struct {
	Operation OperationName
	Cause     error
}

// Error describes the operation failure.
func (operationError OperationError) Error() string {
	if operationError.Cause == nil {
		return fmt.Sprintf(operationErrorMessageTemplateConstant, operationError.Operation)
	}
	return fmt.Sprintf(operationErrorWithCauseTemplateConstant, operationError.Operation, operationError.Cause)
}

// Unwrap exposes the underlying cause.
func (operationError OperationError) Unwrap() error {
	return operationError.Cause
}

// ResponseDecodingError indicates JSON decoding failures.
type ResponseDecodingError struct {
	Operation OperationName
	Cause     error
}

// Error describes the decoding failure.
func (decodingError ResponseDecodingError) Error() string {
	return fmt.Sprintf(responseDecodingErrorTemplateConstant, decodingError.Operation, decodingError.Cause)
}

// Unwrap exposes the underlying JSON error.
func (decodingError ResponseDecodingError) Unwrap() error {
	return decodingError.Cause
}

// PayloadEncodingError indicates JSON encoding issues.
type PayloadEncodingError struct {
	Operation OperationName
	Cause     error
}

// Error describes the encoding failure.
func (encodingError PayloadEncodingError) Error() string {
	return fmt.Sprintf(payloadEncodingErrorTemplateConstant, encodingError.Operation, encodingError.Cause)
}

// Unwrap exposes the underlying error.
func (encodingError PayloadEncodingError) Unwrap() error {
	return encodingError.Cause
}

// NewClient constructs a Strapi 3 client.
func NewClient(executor RequestExecutor, configuration ClientConfiguration) (*Client, error) {
	if executor == nil {
		return nil, ErrExecutorNotConfigured
	}

	baseURL := strings.TrimRight(strings.TrimSpace(configuration.BaseURL), "/")
	if len(baseURL) == 0 {
		return nil, InvalidInputError{FieldName: baseURLFieldNameConstant, Message: requiredValueMessageConstant}
	}

	configuration.BaseURL = baseURL
	return &Client{executor: executor, configuration: configuration}, nil
}

// SignIn authenticates the administrator account and retains the session token
// for subsequent operations.
func (client *Client) SignIn(executionContext context.Context) error {
	administratorEmail := strings.TrimSpace(client.configuration.AdministratorEmail)
	if len(administratorEmail) == 0 {
		return InvalidInputError{FieldName: emailFieldNameConstant, Message: requiredValueMessageConstant}
	}
	if len(client.configuration.AdministratorPassword) == 0 {
		return InvalidInputError{FieldName: passwordFieldNameConstant, Message: requiredValueMessageConstant}
	}

	payload := struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}{Email: administratorEmail, Password: client.configuration.AdministratorPassword}

	payloadBytes, encodingError := json.Marshal(payload)
	if encodingError != nil {
		return PayloadEncodingError{Operation: signInOperationNameConstant, Cause: encodingError}
	}

	requestDetails := httpexec.RequestDetails{
		MethodName:      http.MethodPost,
		RequestURL:      client.configuration.BaseURL + administratorLoginPathConstant,
		Body:            payloadBytes,
		BodyContentType: jsonContentTypeConstant,
	}

	requestResult, requestError := client.executor.Execute(executionContext, requestDetails)
	if requestError != nil {
		return OperationError{Operation: signInOperationNameConstant, Cause: requestError}
	}

	var response struct {
		Data struct {
			Token string `json:"token"`
		} `json:"data"`
	}

	decodingError := json.Unmarshal(requestResult.Body, &response)
	if decodingError != nil {
		return ResponseDecodingError{Operation: signInOperationNameConstant, Cause: decodingError}
	}

	if len(response.Data.Token) == 0 {
		return OperationError{Operation: signInOperationNameConstant, Cause: errors.New(sessionTokenMissingMessageConstant)}
	}

	client.sessionToken = response.Data.Token
	return nil
}

// ListEntries retrieves every entry of a content type by walking offset pages
// until the installation returns an empty one.
func (client *Client) ListEntries(executionContext context.Context, contentType string, pageSize int) ([]Entry, error) {
	contentTypeName := strings.TrimSpace(contentType)
	if len(contentTypeName) == 0 {
		return nil, InvalidInputError{FieldName: contentTypeFieldNameConstant, Message: requiredValueMessageConstant}
	}
	if len(client.sessionToken) == 0 {
		return nil, ErrNotAuthenticated
	}

	if pageSize <= 0 {
		pageSize = defaultPageSizeConstant
	}

	collected := make([]Entry, 0)
	for offset := 0; ; offset += pageSize {
		requestDetails := httpexec.RequestDetails{
			MethodName: http.MethodGet,
			RequestURL: client.configuration.BaseURL + fmt.Sprintf(contentPathTemplateConstant, contentTypeName),
			QueryParameters: url.Values{
				limitQueryParameterNameConstant: []string{strconv.Itoa(pageSize)},
				startQueryParameterNameConstant: []string{strconv.Itoa(offset)},
			},
			Headers: map[string]string{
				authorizationHeaderNameConstant: fmt.Sprintf(bearerTokenTemplateConstant, client.sessionToken),
			},
		}

		requestResult, requestError := client.executor.Execute(executionContext, requestDetails)
		if requestError != nil {
			return nil, OperationError{Operation: listEntriesOperationNameConstant, Cause: requestError}
		}

		var rawEntries []map[string]any
		decodingError := json.Unmarshal(requestResult.Body, &rawEntries)
		if decodingError != nil {
			return nil, ResponseDecodingError{Operation: listEntriesOperationNameConstant, Cause: decodingError}
		}

		if len(rawEntries) == 0 {
			return collected, nil
		}

		for rawIndex, rawEntry := range rawEntries {
			entryIdentifier, identified := numericIdentifier(rawEntry[entryIdentifierFieldNameConstant])
			if !identified {
				return nil, ResponseDecodingError{
					Operation: listEntriesOperationNameConstant,
					Cause:     fmt.Errorf(entryIdentifierMissingTemplateConstant, offset+rawIndex),
				}
			}
			collected = append(collected, Entry{Identifier: entryIdentifier, Attributes: rawEntry})
		}
	}
}

// DownloadAsset fetches a media file, resolving relative URLs against the
// configured base. Uploads are served publicly so no session token is sent.
func (client *Client) DownloadAsset(executionContext context.Context, assetURL string) (AssetContent, error) {
	trimmedAssetURL := strings.TrimSpace(assetURL)
	if len(trimmedAssetURL) == 0 {
		return AssetContent{}, InvalidInputError{FieldName: assetURLFieldNameConstant, Message: requiredValueMessageConstant}
	}

	resolvedURL, resolutionError := client.resolveAssetURL(trimmedAssetURL)
	if resolutionError != nil {
		return AssetContent{}, InvalidInputError{FieldName: assetURLFieldNameConstant, Message: resolutionError.Error()}
	}

	requestDetails := httpexec.RequestDetails{
		MethodName: http.MethodGet,
		RequestURL: resolvedURL.String(),
	}

	requestResult, requestError := client.executor.Execute(executionContext, requestDetails)
	if requestError != nil {
		return AssetContent{}, OperationError{Operation: downloadAssetOperationNameConstant, Cause: requestError}
	}

	return AssetContent{FileName: assetFileName(resolvedURL), Data: requestResult.Body}, nil
}

func (client *Client) resolveAssetURL(assetURL string) (*url.URL, error) {
	baseURL, baseParseError := url.Parse(client.configuration.BaseURL)
	if baseParseError != nil {
		return nil, baseParseError
	}

	parsedAssetURL, assetParseError := url.Parse(assetURL)
	if assetParseError != nil {
		return nil, assetParseError
	}

	return baseURL.ResolveReference(parsedAssetURL), nil
}

func assetFileName(assetURL *url.URL) string {
	fileName := path.Base(assetURL.Path)
	if len(fileName) == 0 || fileName == "." || fileName == "/" {
		return fallbackAssetFileNameConstant
	}
	return fileName
}

func numericIdentifier(rawValue any) (int64, bool) {
	switch typedValue := rawValue.(type) {
	case float64:
		return int64(typedValue), true
	case int:
		return int64(typedValue), true
	case int64:
		return typedValue, true
	default:
		return 0, false
	}
}
