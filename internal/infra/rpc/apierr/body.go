package apierr

import (
	"net/http"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/vietddude/odos/internal/core/domain"
)

// ErrorBody is the aggregator's structured error document:
//
//	{"detail": "...", "traceId": "<uuid>", "errorCode": 2999}
type ErrorBody struct {
	Message string
	Code    ErrorCode
	TraceID domain.TraceID
	// Structured is false when the body did not match the schema and Message
	// holds the raw text instead.
	Structured bool
}

// ParseErrorBody reads a non-2xx body. All three fields must be present and
// well-formed for the structured path; anything else falls back to the raw
// text with CodeUnknown and no trace id. It never fails.
func ParseErrorBody(status int, body []byte) ErrorBody {
	if parsed, ok := parseStructured(body); ok {
		return parsed
	}

	msg := string(body)
	if strings.TrimSpace(msg) == "" {
		msg = http.StatusText(status)
	}
	return ErrorBody{Message: msg, Code: CodeUnknown}
}

func parseStructured(body []byte) (ErrorBody, bool) {
	if !gjson.ValidBytes(body) {
		return ErrorBody{}, false
	}
	root := gjson.ParseBytes(body)
	if !root.IsObject() {
		return ErrorBody{}, false
	}

	fields := root.Map()
	detail, ok := fields["detail"]
	if !ok || detail.Type != gjson.String {
		return ErrorBody{}, false
	}

	rawTrace, ok := fields["traceId"]
	if !ok || rawTrace.Type != gjson.String {
		return ErrorBody{}, false
	}
	traceID, err := domain.ParseTraceID(rawTrace.Str)
	if err != nil {
		return ErrorBody{}, false
	}

	rawCode, ok := fields["errorCode"]
	if !ok || rawCode.Type != gjson.Number || rawCode.Num != float64(rawCode.Int()) {
		return ErrorBody{}, false
	}
	code, ok := CodeFromNumber(rawCode.Int())
	if !ok {
		return ErrorBody{}, false
	}

	return ErrorBody{
		Message:    detail.Str,
		Code:       code,
		TraceID:    traceID,
		Structured: true,
	}, true
}
