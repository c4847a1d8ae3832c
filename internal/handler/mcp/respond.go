package mcp

import (
	"context"
	"encoding/json"
	"errors"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"trading-mcp/internal/domain/entity"
	"trading-mcp/internal/resilience/circuitbreaker"
	"trading-mcp/internal/resilience/retry"
)

// Error codes carried in the failure envelope. The calling model branches
// on these, so they are part of the tool contract.
const (
	CodeInvalidSymbol      = "INVALID_SYMBOL"
	CodeInvalidDateRange   = "INVALID_DATE_RANGE"
	CodeInvalidInterval    = "INVALID_INTERVAL"
	CodeInvalidIndicator   = "INVALID_INDICATOR"
	CodeInvalidParameters  = "INVALID_PARAMETERS"
	CodeDataUnavailable    = "DATA_UNAVAILABLE"
	CodeCircuitOpen        = "CIRCUIT_OPEN"
	CodeAPIError           = "API_ERROR"
	CodeToolExecutionError = "TOOL_EXECUTION_ERROR"
)

// envelope is the JSON body of every tool response: data and metadata on
// success, error on failure. Calling models branch on this shape, so it
// must stay stable.
type envelope struct {
	Success  bool       `json:"success"`
	Data     any        `json:"data,omitempty"`
	Metadata any        `json:"metadata,omitempty"`
	Error    *errorBody `json:"error,omitempty"`
}

type errorBody struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// successResult wraps a tool payload in the success envelope.
func successResult(data, metadata any) *mcpsdk.CallToolResult {
	return textResult(envelope{Success: true, Data: data, Metadata: metadata}, false)
}

// errorResult maps err to its wire code and wraps it in the failure
// envelope. Failures are reported in-band (IsError on the result), never
// as protocol errors, so the model always receives a parseable body.
func errorResult(err error) *mcpsdk.CallToolResult {
	code := MapErrorCode(err)
	body := &errorBody{Code: code, Message: safeMessage(code, err)}
	var verr *entity.ValidationError
	if errors.As(err, &verr) {
		body.Details = map[string]any{"field": verr.Field}
	}
	return textResult(envelope{Success: false, Error: body}, true)
}

// safeMessage returns the client-facing message for err. Validation and
// availability errors describe the caller's own input and pass through
// unchanged. Upstream and unexpected failures are replaced with a stable
// message: their chains carry request URLs and wrapped transport detail
// that belongs in the server log, not in a model-visible response.
func safeMessage(code string, err error) string {
	switch code {
	case CodeAPIError:
		return "upstream request failed; data is temporarily unavailable"
	case CodeToolExecutionError:
		return "internal error while executing the tool"
	default:
		return err.Error()
	}
}

func textResult(env envelope, isError bool) *mcpsdk.CallToolResult {
	text, err := json.MarshalIndent(env, "", "  ")
	if err != nil {
		text = []byte(`{"success": false, "error": {"code": "` + CodeToolExecutionError + `", "message": "failed to encode response"}}`)
		isError = true
	}
	return &mcpsdk.CallToolResult{
		Content: []mcpsdk.Content{&mcpsdk.TextContent{Text: string(text)}},
		IsError: isError,
	}
}

// MapErrorCode translates a domain error into its wire code. Validation
// errors map by field; resilience and upstream errors map by sentinel.
func MapErrorCode(err error) string {
	var verr *entity.ValidationError
	if errors.As(err, &verr) {
		switch verr.Field {
		case "symbol":
			return CodeInvalidSymbol
		case "start_date", "end_date", "date_range":
			return CodeInvalidDateRange
		case "interval":
			return CodeInvalidInterval
		case "indicator":
			return CodeInvalidIndicator
		default:
			return CodeInvalidParameters
		}
	}

	var httpErr *retry.HTTPError
	switch {
	case errors.Is(err, circuitbreaker.ErrOpen):
		return CodeCircuitOpen
	case errors.Is(err, entity.ErrNoData):
		return CodeDataUnavailable
	case errors.Is(err, entity.ErrInvalidInput):
		return CodeInvalidParameters
	case errors.Is(err, entity.ErrUpstream),
		errors.Is(err, retry.ErrExhausted),
		errors.As(err, &httpErr),
		errors.Is(err, context.DeadlineExceeded):
		return CodeAPIError
	default:
		return CodeToolExecutionError
	}
}

// isServerFailure reports whether a code counts against availability.
// Validation rejections and empty upstream results are the caller's
// problem and leave the error budget alone.
func isServerFailure(code string) bool {
	switch code {
	case CodeAPIError, CodeCircuitOpen, CodeToolExecutionError:
		return true
	}
	return false
}
