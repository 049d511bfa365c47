package monitor

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Azure/ai4ops-mcp/internal/query"
	"github.com/Azure/ai4ops-mcp/internal/timespan"
)

// MissingParameterError reports required parameters absent from a call.
type MissingParameterError struct {
	Report string
	Params []string
}

func (e *MissingParameterError) Error() string {
	return fmt.Sprintf("missing required parameter(s): %s", strings.Join(e.Params, ", "))
}

// InvalidParameterError reports a parameter value of an unusable shape.
type InvalidParameterError struct {
	Report string
	Param  string
	Value  any
}

func (e *InvalidParameterError) Error() string {
	return fmt.Sprintf("invalid value for parameter %s: expected %s, got %T", e.Param, e.expected(), e.Value)
}

func (e *InvalidParameterError) expected() string {
	if d, ok := GetDefinition(e.Report); ok {
		if p, ok := d.Param(e.Param); ok && p.Kind == KindStringList {
			return "a string or a list of strings"
		}
	}
	return "a string"
}

// Build renders the report query for params over window. String values are
// escaped by the template where they land inside KQL literals; they are never
// rejected for their content. The timespan parameter is not read from params:
// the caller resolves it into window.
func Build(def *Definition, params map[string]any, window timespan.Window) (query.Spec, error) {
	values, err := resolveParams(def, params)
	if err != nil {
		return query.Spec{}, err
	}

	data := make(map[string]any, len(values)+2)
	for k, v := range values {
		data[k] = v
	}
	data[ParamTimespan] = window.KQL()
	data["row_cap"] = def.RowCap

	var buf strings.Builder
	if err := def.tmpl.Execute(&buf, data); err != nil {
		return query.Spec{}, fmt.Errorf("failed to render %s query: %w", def.Name, err)
	}

	var target query.Target
	switch def.Scope {
	case ScopeWorkspace:
		target.WorkspaceID, _ = values[ParamWorkspaceID].(string)
	default:
		target.SubscriptionIDs, _ = values[ParamSubscriptionIDs].([]string)
	}

	return query.Spec{
		Report: def.Name,
		Query:  strings.TrimSpace(buf.String()),
		Target: target,
		Window: window,
		RowCap: def.RowCap,
	}, nil
}

// resolveParams coerces every declared parameter, applies defaults and
// collects all missing required names before failing.
func resolveParams(def *Definition, params map[string]any) (map[string]any, error) {
	values := make(map[string]any, len(def.Params))
	var missing []string

	for _, p := range def.Params {
		if p.Name == ParamTimespan {
			continue
		}
		raw, _ := lookup(params, p)

		var (
			v     any
			empty bool
		)
		switch p.Kind {
		case KindStringList:
			list, ok := coerceStringList(raw)
			if !ok {
				return nil, &InvalidParameterError{Report: def.Name, Param: p.Name, Value: raw}
			}
			v, empty = list, len(list) == 0
		default:
			s, ok := coerceString(raw)
			if !ok {
				return nil, &InvalidParameterError{Report: def.Name, Param: p.Name, Value: raw}
			}
			v, empty = s, strings.TrimSpace(s) == ""
		}

		if empty {
			switch {
			case p.Required:
				missing = append(missing, p.Name)
				continue
			case p.Kind == KindStringList:
				v = splitDefault(p.Default)
			default:
				v = p.Default
			}
		}
		values[p.Name] = v
	}

	if len(missing) > 0 {
		return nil, &MissingParameterError{Report: def.Name, Params: missing}
	}
	return values, nil
}

func lookup(params map[string]any, p Param) (any, bool) {
	if v, ok := params[p.Name]; ok && v != nil {
		return v, true
	}
	for _, alias := range p.Aliases {
		if v, ok := params[alias]; ok && v != nil {
			return v, true
		}
	}
	return nil, false
}

func coerceString(v any) (string, bool) {
	switch x := v.(type) {
	case nil:
		return "", true
	case string:
		return x, true
	case json.Number:
		return x.String(), true
	case bool, int, int32, int64, uint, uint32, uint64, float32, float64:
		return fmt.Sprint(x), true
	case fmt.Stringer:
		return x.String(), true
	}
	return "", false
}

func coerceStringList(v any) ([]string, bool) {
	switch x := v.(type) {
	case nil:
		return nil, true
	case string:
		if strings.TrimSpace(x) == "" {
			return nil, true
		}
		return []string{strings.TrimSpace(x)}, true
	case []string:
		return compact(x), true
	case []any:
		out := make([]string, 0, len(x))
		for _, item := range x {
			s, ok := coerceString(item)
			if !ok {
				return nil, false
			}
			out = append(out, s)
		}
		return compact(out), true
	}
	return nil, false
}

func compact(items []string) []string {
	out := make([]string, 0, len(items))
	for _, s := range items {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func splitDefault(s string) []string {
	if s == "" {
		return nil
	}
	return compact(strings.Split(s, ","))
}
