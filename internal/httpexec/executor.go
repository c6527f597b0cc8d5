package httpexec

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"
)

const (
	loggerNotConfiguredMessageConstant        = "logger not configured"
	transportNotConfiguredMessageConstant     = "http transport not configured"
	requestStartedMessageConstant             = "Dispatching HTTP request"
	requestCompletedMessageConstant           = "HTTP request completed"
	requestTransportFailureMessageConstant    = "HTTP request failed"
	requestFailedErrorTemplateConstant        = "%s %s returned status %d: %s"
	requestExecutionErrorTemplateConstant     = "%s %s failed: %v"
	requestConstructionErrorTemplateConstant  = "unable to construct request for %s %s: %w"
	responseBodyReadErrorTemplateConstant     = "unable to read response body for %s %s: %w"
	contentTypeHeaderNameConstant             = "Content-Type"
	methodLogFieldNameConstant                = "method"
	requestURLLogFieldNameConstant            = "url"
	statusCodeLogFieldNameConstant            = "status"
	durationLogFieldNameConstant              = "duration_ms"
	responseBytesLogFieldNameConstant         = "response_bytes"
	failureBodySnippetLengthLimitConstant     = 512
	successStatusCodeLowerBoundConstant       = 200
	successStatusCodeUpperBoundExclusiveConst = 300
)

// Configuration errors surfaced during executor construction.
var (
	ErrLoggerNotConfigured    = errors.New(loggerNotConfiguredMessageConstant)
	ErrTransportNotConfigured = errors.New(transportNotConfiguredMessageConstant)
)

// HTTPTransport abstracts the client performing HTTP round trips.
type HTTPTransport interface {
	Do(request *http.Request) (*http.Response, error)
}

// RequestDetails describes a single HTTP request declaratively.
type RequestDetails struct {
	MethodName      string
	RequestURL      string
	QueryParameters url.Values
	Headers         map[string]string
	Body            []byte
	BodyContentType string
}

// RequestResult captures the observable response of an executed request.
type RequestResult struct {
	StatusCode int
	Body       []byte
	Headers    http.Header
}

// RequestFailedError reports a response with a non-success status code.
type RequestFailedError struct {
	Details RequestDetails
	Result  RequestResult
}

// Error renders the failed request with a snippet of the response body.
func (failedError RequestFailedError) Error() string {
	return fmt.Sprintf(
		requestFailedErrorTemplateConstant,
		failedError.Details.MethodName,
		failedError.Details.RequestURL,
		failedError.Result.StatusCode,
		truncateBodySnippet(failedError.Result.Body),
	)
}

// RequestExecutionError reports a transport-level failure before a response arrived.
type RequestExecutionError struct {
	Details RequestDetails
	Cause   error
}

// Error renders the transport failure.
func (executionError RequestExecutionError) Error() string {
	return fmt.Sprintf(
		requestExecutionErrorTemplateConstant,
		executionError.Details.MethodName,
		executionError.Details.RequestURL,
		executionError.Cause,
	)
}

// Unwrap exposes the underlying transport failure.
func (executionError RequestExecutionError) Unwrap() error {
	return executionError.Cause
}

// RequestExecutor performs HTTP requests with shared logging and error translation.
type RequestExecutor struct {
	logger    *zap.Logger
	transport HTTPTransport
}

// NewRequestExecutor validates dependencies and constructs a RequestExecutor.
func NewRequestExecutor(logger *zap.Logger, transport HTTPTransport) (*RequestExecutor, error) {
	if logger == nil {
		return nil, ErrLoggerNotConfigured
	}
	if transport == nil {
		return nil, ErrTransportNotConfigured
	}
	return &RequestExecutor{logger: logger, transport: transport}, nil
}

// Execute performs the described request and returns the collected response.
// Responses outside the 2xx range produce a RequestFailedError that still carries the result.
func (executor *RequestExecutor) Execute(executionContext context.Context, details RequestDetails) (RequestResult, error) {
	var requestBody io.Reader
	if len(details.Body) > 0 {
		requestBody = bytes.NewReader(details.Body)
	}

	httpRequest, constructionError := http.NewRequestWithContext(executionContext, details.MethodName, details.RequestURL, requestBody)
	if constructionError != nil {
		return RequestResult{}, RequestExecutionError{
			Details: details,
			Cause:   fmt.Errorf(requestConstructionErrorTemplateConstant, details.MethodName, details.RequestURL, constructionError),
		}
	}

	if len(details.QueryParameters) > 0 {
		httpRequest.URL.RawQuery = details.QueryParameters.Encode()
	}

	for headerName, headerValue := range details.Headers {
		httpRequest.Header.Set(headerName, headerValue)
	}
	if len(details.BodyContentType) > 0 {
		httpRequest.Header.Set(contentTypeHeaderNameConstant, details.BodyContentType)
	}

	executor.logger.Debug(
		requestStartedMessageConstant,
		zap.String(methodLogFieldNameConstant, details.MethodName),
		zap.String(requestURLLogFieldNameConstant, httpRequest.URL.String()),
	)

	startedAt := time.Now()
	httpResponse, transportError := executor.transport.Do(httpRequest)
	if transportError != nil {
		executor.logger.Debug(
			requestTransportFailureMessageConstant,
			zap.String(methodLogFieldNameConstant, details.MethodName),
			zap.String(requestURLLogFieldNameConstant, httpRequest.URL.String()),
			zap.Error(transportError),
		)
		return RequestResult{}, RequestExecutionError{Details: details, Cause: transportError}
	}
	defer func() {
		_ = httpResponse.Body.Close()
	}()

	responseBody, readError := io.ReadAll(httpResponse.Body)
	if readError != nil {
		executor.logger.Debug(
			requestTransportFailureMessageConstant,
			zap.String(methodLogFieldNameConstant, details.MethodName),
			zap.String(requestURLLogFieldNameConstant, httpRequest.URL.String()),
			zap.Error(readError),
		)
		return RequestResult{}, RequestExecutionError{
			Details: details,
			Cause:   fmt.Errorf(responseBodyReadErrorTemplateConstant, details.MethodName, details.RequestURL, readError),
		}
	}

	requestResult := RequestResult{
		StatusCode: httpResponse.StatusCode,
		Body:       responseBody,
		Headers:    httpResponse.Header,
	}

	executor.logger.Debug(
		requestCompletedMessageConstant,
		zap.String(methodLogFieldNameConstant, details.MethodName),
		zap.String(requestURLLogFieldNameConstant, httpRequest.URL.String()),
		zap.Int(statusCodeLogFieldNameConstant, requestResult.StatusCode),
		zap.Int64(durationLogFieldNameConstant, time.Since(startedAt).Milliseconds()),
		zap.Int(responseBytesLogFieldNameConstant, len(requestResult.Body)),
	)

	if requestResult.StatusCode < successStatusCodeLowerBoundConstant || requestResult.StatusCode >= successStatusCodeUpperBoundExclusiveConst {
		return requestResult, RequestFailedError{Details: details, Result: requestResult}
	}

	return requestResult, nil
}

func truncateBodySnippet(body []byte) string {
	if len(body) <= failureBodySnippetLengthLimitConstant {
		return string(body)
	}
	return string(body[:failureBodySnippetLengthLimitConstant])
}
