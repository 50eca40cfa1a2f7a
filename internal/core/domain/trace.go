package domain

import "github.com/google/uuid"

// TraceID is the correlation id the aggregator attaches to error responses.
// The zero value means the response carried none.
type TraceID uuid.UUID

// ParseTraceID parses a UUID string.
func ParseTraceID(s string) (TraceID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return TraceID{}, err
	}
	return TraceID(id), nil
}

func (t TraceID) IsZero() bool {
	return uuid.UUID(t) == uuid.Nil
}

func (t TraceID) String() string {
	if t.IsZero() {
		return ""
	}
	return uuid.UUID(t).String()
}
