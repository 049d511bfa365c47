package query

import (
	"encoding/json"
	"fmt"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Error codes carried by Error. They are not part of the JSON envelope.
const (
	CodeMissingParameter = "missing_parameter"
	CodeInvalidArgument  = "invalid_argument"
	CodeUnknownReport    = "unknown_report"
	CodeBackendFault     = "backend_fault"
	CodeInvalidResult    = "invalid_result"
)

// Rows is a normalized tabular result. Every row has len(Columns) cells.
type Rows struct {
	Columns []string
	Values  [][]any
}

// Records returns the rows as ordered records keyed by column name.
func (r *Rows) Records() []*orderedmap.OrderedMap[string, any] {
	records := make([]*orderedmap.OrderedMap[string, any], 0, len(r.Values))
	for _, row := range r.Values {
		rec := orderedmap.New[string, any](len(r.Columns))
		for i, col := range r.Columns {
			var v any
			if i < len(row) {
				v = row[i]
			}
			rec.Set(col, v)
		}
		records = append(records, rec)
	}
	return records
}

// Error is the failure variant of Result.
type Error struct {
	Code    string
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// Result holds exactly one of Rows or Err.
type Result struct {
	Rows *Rows
	Err  *Error
}

// RowsResult wraps rows.
func RowsResult(rows *Rows) Result {
	return Result{Rows: rows}
}

// ErrorResult builds a failure result.
func ErrorResult(code, format string, args ...any) Result {
	return Result{Err: &Error{Code: code, Message: fmt.Sprintf(format, args...)}}
}

// OK reports whether the result carries rows.
func (r Result) OK() bool {
	return r.Err == nil && r.Rows != nil
}

// RowCount returns the number of rows, or zero for an error.
func (r Result) RowCount() int {
	if !r.OK() {
		return 0
	}
	return len(r.Rows.Values)
}

type errorEnvelope struct {
	Error string `json:"error"`
}

// JSON renders the result for a tool caller: an array of records, or
// {"error": "<message>"}.
func (r Result) JSON() string {
	var (
		data []byte
		err  error
	)
	switch {
	case r.Err != nil:
		data, err = json.Marshal(errorEnvelope{Error: r.Err.Message})
	case r.Rows != nil:
		data, err = json.Marshal(r.Rows.Records())
	default:
		data, err = json.Marshal(errorEnvelope{Error: "empty result"})
	}
	if err != nil {
		data, _ = json.Marshal(errorEnvelope{Error: fmt.Sprintf("failed to encode result: %v", err)})
	}
	return string(data)
}
