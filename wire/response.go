package wire

import (
	"encoding/json"
	"fmt"
)

// ResponseItem is one correlated outcome of a batch. Exactly one of
// Data and Error is meaningful: Error nil means success, with Data
// possibly absent when the call produced no value.
type ResponseItem struct {
	ID    ID              `json:"id"`
	Data  json.RawMessage `json:"data,omitempty"`
	Error *Error          `json:"error,omitempty"`
}

// HasError returns true if the item is a failure
func (r *ResponseItem) HasError() bool {
	return r.Error != nil
}

// NewDataItem wraps a successful return value.
func NewDataItem(id ID, v interface{}) (*ResponseItem, error) {
	item := &ResponseItem{ID: id}
	if v != nil {
		data, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal result for call %s: %w", id, err)
		}
		item.Data = data
	}
	return item, nil
}

// NewRawDataItem wraps an already-encoded successful return value.
func NewRawDataItem(id ID, data json.RawMessage) *ResponseItem {
	return &ResponseItem{ID: id, Data: data}
}

// NewErrorItem wraps a per-item failure.
func NewErrorItem(id ID, err *Error) *ResponseItem {
	return &ResponseItem{ID: id, Error: err}
}

// MarshalItems renders the correlated response array.
func MarshalItems(items []*ResponseItem) ([]byte, error) {
	return json.Marshal(items)
}

// ParseItems parses a correlated response array.
func ParseItems(data []byte) ([]*ResponseItem, error) {
	var items []*ResponseItem
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("failed to parse batch response: %w", err)
	}
	return items, nil
}

// Frame is one batch request carried over a WebSocket connection.
// Seq correlates the frame with its response frame; call ids inside
// the frame correlate individual outcomes as on HTTP.
type Frame struct {
	Seq   uint64          `json:"seq"`
	Calls string          `json:"calls"`
	Body  json.RawMessage `json:"body"`
}

// ResponseFrame is the WebSocket reply to a Frame.
type ResponseFrame struct {
	Seq   uint64          `json:"seq"`
	Items []*ResponseItem `json:"items"`
	Error *Error          `json:"error,omitempty"`
}
