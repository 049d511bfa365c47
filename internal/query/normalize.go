package query

import (
	"fmt"
	"reflect"
	"slices"
	"sort"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Normalize flattens a backend payload into Rows. Column order is the
// backend's own where it has one; records without an intrinsic order (plain
// maps) get their keys sorted so output stays reproducible. Every cell is
// canonicalized.
func Normalize(payload any) (*Rows, error) {
	switch p := payload.(type) {
	case nil:
		return &Rows{Columns: []string{}, Values: [][]any{}}, nil
	case *Rows:
		return tableRows(p.Columns, p.Values), nil
	case Rows:
		return tableRows(p.Columns, p.Values), nil
	case Table:
		return tableRows(p.Columns, p.Rows), nil
	case *Table:
		if p == nil {
			return Normalize(nil)
		}
		return tableRows(p.Columns, p.Rows), nil
	case []Table:
		tables := make([]*Table, len(p))
		for i := range p {
			tables[i] = &p[i]
		}
		return mergeTables(tables), nil
	case []*Table:
		return mergeTables(p), nil
	case map[string]any:
		return normalizeMap(p)
	case *orderedmap.OrderedMap[string, any]:
		return recordRows([]any{p})
	case []map[string]any:
		records := make([]any, len(p))
		for i, r := range p {
			records[i] = r
		}
		return recordRows(records)
	case []*orderedmap.OrderedMap[string, any]:
		records := make([]any, len(p))
		for i, r := range p {
			records[i] = r
		}
		return recordRows(records)
	case []any:
		return recordRows(p)
	}
	return nil, fmt.Errorf("unsupported result shape %T", payload)
}

func tableRows(columns []string, values [][]any) *Rows {
	rows := &Rows{
		Columns: append([]string{}, columns...),
		Values:  make([][]any, 0, len(values)),
	}
	for _, row := range values {
		out := make([]any, len(columns))
		for i := range out {
			if i < len(row) {
				out[i] = Canonicalize(row[i])
			}
		}
		rows.Values = append(rows.Values, out)
	}
	return rows
}

// mergeTables concatenates tables. Columns are the union in first-seen order;
// cells missing from a table are nil.
func mergeTables(tables []*Table) *Rows {
	var columns []string
	index := map[string]int{}
	for _, t := range tables {
		if t == nil {
			continue
		}
		for _, c := range t.Columns {
			if _, ok := index[c]; !ok {
				index[c] = len(columns)
				columns = append(columns, c)
			}
		}
	}

	rows := &Rows{Columns: columns, Values: [][]any{}}
	if rows.Columns == nil {
		rows.Columns = []string{}
	}
	for _, t := range tables {
		if t == nil {
			continue
		}
		for _, row := range t.Rows {
			out := make([]any, len(columns))
			for i, c := range t.Columns {
				if i < len(row) {
					out[index[c]] = Canonicalize(row[i])
				}
			}
			rows.Values = append(rows.Values, out)
		}
	}
	return rows
}

// normalizeMap handles the Resource Graph table format and {"data": ...}
// envelopes.
func normalizeMap(m map[string]any) (*Rows, error) {
	if rawCols, ok := m["columns"]; ok {
		rawRows := m["rows"]
		columns, err := columnNames(rawCols)
		if err != nil {
			return nil, err
		}
		values, err := rowValues(rawRows)
		if err != nil {
			return nil, err
		}
		return tableRows(columns, values), nil
	}
	if data, ok := m["data"]; ok {
		return Normalize(data)
	}
	return recordRows([]any{m})
}

func columnNames(raw any) ([]string, error) {
	items, ok := toSlice(raw)
	if !ok {
		return nil, fmt.Errorf("columns must be a list, got %T", raw)
	}
	names := make([]string, 0, len(items))
	for _, item := range items {
		switch c := item.(type) {
		case string:
			names = append(names, c)
		case map[string]any:
			name, ok := c["name"].(string)
			if !ok {
				return nil, fmt.Errorf("column entry has no name: %v", c)
			}
			names = append(names, name)
		default:
			return nil, fmt.Errorf("unsupported column entry %T", item)
		}
	}
	return names, nil
}

func rowValues(raw any) ([][]any, error) {
	if raw == nil {
		return nil, nil
	}
	items, ok := toSlice(raw)
	if !ok {
		return nil, fmt.Errorf("rows must be a list, got %T", raw)
	}
	values := make([][]any, 0, len(items))
	for _, item := range items {
		row, ok := toSlice(item)
		if !ok {
			return nil, fmt.Errorf("row must be a list, got %T", item)
		}
		values = append(values, row)
	}
	return values, nil
}

func toSlice(v any) ([]any, bool) {
	if s, ok := v.([]any); ok {
		return s, true
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}

// recordRows turns a list of records into rows. Ordered records keep their
// key order; plain map keys are sorted before being appended.
func recordRows(records []any) (*Rows, error) {
	var columns []string
	seen := map[string]bool{}
	add := func(keys []string) {
		for _, k := range keys {
			if !seen[k] {
				seen[k] = true
				columns = append(columns, k)
			}
		}
	}

	maps := make([]map[string]any, 0, len(records))
	for _, r := range records {
		switch rec := r.(type) {
		case map[string]any:
			keys := make([]string, 0, len(rec))
			for k := range rec {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			add(keys)
			maps = append(maps, rec)
		case *orderedmap.OrderedMap[string, any]:
			keys := make([]string, 0, rec.Len())
			flat := make(map[string]any, rec.Len())
			for pair := rec.Oldest(); pair != nil; pair = pair.Next() {
				keys = append(keys, pair.Key)
				flat[pair.Key] = pair.Value
			}
			add(keys)
			maps = append(maps, flat)
		default:
			return nil, fmt.Errorf("unsupported record type %T", r)
		}
	}

	if columns == nil {
		columns = []string{}
	}
	rows := &Rows{Columns: slices.Clone(columns), Values: make([][]any, 0, len(maps))}
	for _, m := range maps {
		row := make([]any, len(columns))
		for i, c := range columns {
			row[i] = Canonicalize(m[c])
		}
		rows.Values = append(rows.Values, row)
	}
	return rows, nil
}
