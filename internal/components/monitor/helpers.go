package monitor

import (
	"fmt"
	"reflect"
	"strings"
	"text/template"

	"github.com/Masterminds/sprig/v3"
	"github.com/google/uuid"
)

// GetDefinition returns the report registered under the tool name.
func GetDefinition(name string) (*Definition, bool) {
	d, ok := definitionIndex[name]
	return d, ok
}

// ValidateReport checks if the report name is supported
func ValidateReport(name string) bool {
	_, ok := definitionIndex[name]
	return ok
}

// GetDefinitions returns every report in registration order.
func GetDefinitions() []*Definition {
	return append([]*Definition(nil), definitions...)
}

// GetSupportedReports returns all supported report tool names
func GetSupportedReports() []string {
	names := make([]string, 0, len(definitions))
	for _, d := range definitions {
		names = append(names, d.Name)
	}
	return names
}

// IsWorkspaceID reports whether id looks like a Log Analytics workspace id.
// The check is advisory; callers only warn on mismatch.
func IsWorkspaceID(id string) bool {
	if len(id) != 36 {
		return false
	}
	_, err := uuid.Parse(id)
	return err == nil
}

// KQLEscape escapes s for use inside a single-quoted KQL string literal.
func KQLEscape(s string) string {
	return kqlReplacer.Replace(s)
}

var kqlReplacer = strings.NewReplacer(`\`, `\\`, `'`, `\'`)

// kqlList renders a list as comma separated single-quoted KQL literals.
func kqlList(v any) (string, error) {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return "", fmt.Errorf("kqlList: expected a list, got %T", v)
	}
	items := make([]string, 0, rv.Len())
	for i := 0; i < rv.Len(); i++ {
		items = append(items, "'"+KQLEscape(fmt.Sprint(rv.Index(i).Interface()))+"'")
	}
	return strings.Join(items, ", "), nil
}

func templateFuncs() template.FuncMap {
	funcs := sprig.TxtFuncMap()
	funcs["kqlEscape"] = KQLEscape
	funcs["kqlList"] = kqlList
	return funcs
}
