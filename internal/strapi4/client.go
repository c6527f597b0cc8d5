package strapi4

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/awatertrevi/strapi-migrator/internal/httpexec"
)

const (
	contentEndpointTemplateConstant         = "/api/%s"
	entryEndpointTemplateConstant           = "/api/%s/%d"
	uploadEndpointPathConstant              = "/api/upload"
	uploadFormFieldNameConstant             = "files"
	sourceIdentifierFilterConstant          = "filters[old_id][$eq]"
	authorizationHeaderNameConstant         = "Authorization"
	bearerTokenTemplateConstant             = "Bearer %s"
	jsonContentTypeConstant                 = "application/json"
	baseURLFieldNameConstant                = "base_url"
	apiKeyFieldNameConstant                 = "api_key"
	contentTypeFieldNameConstant            = "content_type"
	entryIdentifierFieldNameConstant        = "entry_identifier"
	sourceIdentifierFieldNameConstant       = "source_identifier"
	fileNameFieldNameConstant               = "file_name"
	requiredValueMessageConstant            = "value required"
	positiveValueMessageConstant            = "positive value required"
	executorNotConfiguredMessageConstant    = "strapi 4 request executor not configured"
	createdIdentifierMissingMessageConstant = "create response carried no entry identifier"
	uploadedFileMissingMessageConstant      = "upload response carried no files"
	operationErrorMessageTemplateConstant   = "%s operation failed"
	operationErrorWithCauseTemplateConstant = "%s operation failed: %s"
	responseDecodingErrorTemplateConstant   = "%s response decoding failed: %s"
	payloadEncodingErrorTemplateConstant    = "%s payload encoding failed: %s"
	invalidInputErrorTemplateConstant       = "%s: %s"
	createEntryOperationNameConstant        = OperationName("CreateEntry")
	updateEntryOperationNameConstant        = OperationName("UpdateEntry")
	uploadAssetOperationNameConstant        = OperationName("UploadAsset")
	resolveIdentifierOperationNameConstant  = OperationName("ResolveEntryIdentifier")
)

// OperationName describes a named Strapi 4 workflow supported by the client.
type OperationName string

// CreatedEntry reports the destination identifier assigned to a created entry.
type CreatedEntry struct {
	Identifier int64
}

// UploadedAsset reports the destination identifier assigned to an uploaded file.
type UploadedAsset struct {
	Identifier int64
}

// ClientConfiguration identifies the destination installation and its API key.
type ClientConfiguration struct {
	BaseURL string
	APIKey  string
}

// RequestExecutor is the minimal interface required from httpexec.RequestExecutor.
type RequestExecutor interface {
	Execute(executionContext context.Context, details httpexec.RequestDetails) (httpexec.RequestResult, error)
}

// Client coordinates Strapi 4 requests through httpexec.
type Client struct {
	executor      RequestExecutor
	configuration ClientConfiguration
}

var (
	// ErrExecutorNotConfigured indicates the client was constructed without an executor.
	ErrExecutorNotConfigured = errors.New(executorNotConfiguredMessageConstant)
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

// OperationError wraps request failures for Strapi 4 operations.
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

// PayloadEncodingError indicates body encoding issues.
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

// NewClient constructs a Strapi 4 client.
func NewClient(executor RequestExecutor, configuration ClientConfiguration) (*Client, error) {
	if executor == nil {
		return nil, ErrExecutorNotConfigured
	}

	baseURL := strings.TrimRight(strings.TrimSpace(configuration.BaseURL), "/")
	if len(baseURL) == 0 {
		return nil, InvalidInputError{FieldName: baseURLFieldNameConstant, Message: requiredValueMessageConstant}
	}
	if len(strings.TrimSpace(configuration.APIKey)) == 0 {
		return nil, InvalidInputError{FieldName: apiKeyFieldNameConstant, Message: requiredValueMessageConstant}
	}

	configuration.BaseURL = baseURL
	return &Client{executor: executor, configuration: configuration}, nil
}

// CreateEntry posts a new entry and reports its assigned identifier.
func (client *Client) CreateEntry(executionContext context.Context, contentType string, attributes map[string]any) (CreatedEntry, error) {
	contentTypeName := strings.TrimSpace(contentType)
	if len(contentTypeName) == 0 {
		return CreatedEntry{}, InvalidInputError{FieldName: contentTypeFieldNameConstant, Message: requiredValueMessageConstant}
	}

	payloadBytes, encodingError := encodeDataEnvelope(attributes)
	if encodingError != nil {
		return CreatedEntry{}, PayloadEncodingError{Operation: createEntryOperationNameConstant, Cause: encodingError}
	}

	requestDetails := httpexec.RequestDetails{
		MethodName:      http.MethodPost,
		RequestURL:      client.configuration.BaseURL + fmt.Sprintf(contentEndpointTemplateConstant, contentTypeName),
		Headers:         client.authorizationHeader(),
		Body:            payloadBytes,
		BodyContentType: jsonContentTypeConstant,
	}

	requestResult, requestError := client.executor.Execute(executionContext, requestDetails)
	if requestError != nil {
		return CreatedEntry{}, OperationError{Operation: createEntryOperationNameConstant, Cause: requestError}
	}

	var response struct {
		Data struct {
			Identifier int64 `json:"id"`
		} `json:"data"`
	}

	decodingError := json.Unmarshal(requestResult.Body, &response)
	if decodingError != nil {
		return CreatedEntry{}, ResponseDecodingError{Operation: createEntryOperationNameConstant, Cause: decodingError}
	}

	if response.Data.Identifier == 0 {
		return CreatedEntry{}, ResponseDecodingError{Operation: createEntryOperationNameConstant, Cause: errors.New(createdIdentifierMissingMessageConstant)}
	}

	return CreatedEntry{Identifier: response.Data.Identifier}, nil
}

// UpdateEntry patches the attributes of an existing entry.
func (client *Client) UpdateEntry(executionContext context.Context, contentType string, entryIdentifier int64, attributes map[string]any) error {
	contentTypeName := strings.TrimSpace(contentType)
	if len(contentTypeName) == 0 {
		return InvalidInputError{FieldName: contentTypeFieldNameConstant, Message: requiredValueMessageConstant}
	}
	if entryIdentifier <= 0 {
		return InvalidInputError{FieldName: entryIdentifierFieldNameConstant, Message: positiveValueMessageConstant}
	}

	payloadBytes, encodingError := encodeDataEnvelope(attributes)
	if encodingError != nil {
		return PayloadEncodingError{Operation: updateEntryOperationNameConstant, Cause: encodingError}
	}

	requestDetails := httpexec.RequestDetails{
		MethodName:      http.MethodPut,
		RequestURL:      client.configuration.BaseURL + fmt.Sprintf(entryEndpointTemplateConstant, contentTypeName, entryIdentifier),
		Headers:         client.authorizationHeader(),
		Body:            payloadBytes,
		BodyContentType: jsonContentTypeConstant,
	}

	_, requestError := client.executor.Execute(executionContext, requestDetails)
	if requestError != nil {
		return OperationError{Operation: updateEntryOperationNameConstant, Cause: requestError}
	}

	return nil
}

// UploadAsset sends one file through the upload endpoint and reports its
// assigned identifier.
func (client *Client) UploadAsset(executionContext context.Context, fileName string, contents []byte) (UploadedAsset, error) {
	trimmedFileName := strings.TrimSpace(fileName)
	if len(trimmedFileName) == 0 {
		return UploadedAsset{}, InvalidInputError{FieldName: fileNameFieldNameConstant, Message: requiredValueMessageConstant}
	}

	var requestBody bytes.Buffer
	multipartWriter := multipart.NewWriter(&requestBody)

	filePart, partError := multipartWriter.CreateFormFile(uploadFormFieldNameConstant, trimmedFileName)
	if partError != nil {
		return UploadedAsset{}, PayloadEncodingError{Operation: uploadAssetOperationNameConstant, Cause: partError}
	}
	if _, writeError := filePart.Write(contents); writeError != nil {
		return UploadedAsset{}, PayloadEncodingError{Operation: uploadAssetOperationNameConstant, Cause: writeError}
	}
	if closeError := multipartWriter.Close(); closeError != nil {
		return UploadedAsset{}, PayloadEncodingError{Operation: uploadAssetOperationNameConstant, Cause: closeError}
	}

	requestDetails := httpexec.RequestDetails{
		MethodName:      http.MethodPost,
		RequestURL:      client.configuration.BaseURL + uploadEndpointPathConstant,
		Headers:         client.authorizationHeader(),
		Body:            requestBody.Bytes(),
		BodyContentType: multipartWriter.FormDataContentType(),
	}

	requestResult, requestError := client.executor.Execute(executionContext, requestDetails)
	if requestError != nil {
		return UploadedAsset{}, OperationError{Operation: uploadAssetOperationNameConstant, Cause: requestError}
	}

	var response []struct {
		Identifier int64 `json:"id"`
	}

	decodingError := json.Unmarshal(requestResult.Body, &response)
	if decodingError != nil {
		return UploadedAsset{}, ResponseDecodingError{Operation: uploadAssetOperationNameConstant, Cause: decodingError}
	}

	if len(response) == 0 {
		return UploadedAsset{}, ResponseDecodingError{Operation: uploadAssetOperationNameConstant, Cause: errors.New(uploadedFileMissingMessageConstant)}
	}

	return UploadedAsset{Identifier: response[0].Identifier}, nil
}

// ResolveEntryIdentifier looks up the destination entry recorded for a source
// identifier. The second return reports whether such an entry exists.
func (client *Client) ResolveEntryIdentifier(executionContext context.Context, contentType string, sourceIdentifier int64) (int64, bool, error) {
	contentTypeName := strings.TrimSpace(contentType)
	if len(contentTypeName) == 0 {
		return 0, false, InvalidInputError{FieldName: contentTypeFieldNameConstant, Message: requiredValueMessageConstant}
	}
	if sourceIdentifier <= 0 {
		return 0, false, InvalidInputError{FieldName: sourceIdentifierFieldNameConstant, Message: positiveValueMessageConstant}
	}

	requestDetails := httpexec.RequestDetails{
		MethodName: http.MethodGet,
		RequestURL: client.configuration.BaseURL + fmt.Sprintf(contentEndpointTemplateConstant, contentTypeName),
		QueryParameters: url.Values{
			sourceIdentifierFilterConstant: []string{strconv.FormatInt(sourceIdentifier, 10)},
		},
		Headers: client.authorizationHeader(),
	}

	requestResult, requestError := client.executor.Execute(executionContext, requestDetails)
	if requestError != nil {
		return 0, false, OperationError{Operation: resolveIdentifierOperationNameConstant, Cause: requestError}
	}

	var response struct {
		Data []struct {
			Identifier int64 `json:"id"`
		} `json:"data"`
	}

	decodingError := json.Unmarshal(requestResult.Body, &response)
	if decodingError != nil {
		return 0, false, ResponseDecodingError{Operation: resolveIdentifierOperationNameConstant, Cause: decodingError}
	}

	if len(response.Data) == 0 {
		return 0, false, nil
	}

	return response.Data[0].Identifier, true, nil
}

func (client *Client) authorizationHeader() map[string]string {
	return map[string]string{
		authorizationHeaderNameConstant: fmt.Sprintf(bearerTokenTemplateConstant, client.configuration.APIKey),
	}
}

func encodeDataEnvelope(attributes map[string]any) ([]byte, error) {
	payload := struct {
		Data map[string]any `json:"data"`
	}{Data: attributes}
	return json.Marshal(payload)
}
