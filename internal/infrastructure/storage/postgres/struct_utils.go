package postgres

import (
	"reflect"
	"sync"
)

// column maps a "db" tag to the field index path inside the row struct,
// promoted fields of embedded structs included.
type column struct {
	name  string
	index []int
}

var layouts sync.Map // reflect.Type -> []column

func layoutOf(t reflect.Type) []column {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if cached, ok := layouts.Load(t); ok {
		return cached.([]column)
	}
	var cols []column
	if t.Kind() == reflect.Struct {
		for _, f := range reflect.VisibleFields(t) {
			if f.Anonymous || !f.IsExported() {
				continue
			}
			tag := f.Tag.Get("db")
			if tag == "" || tag == "-" {
				continue
			}
			cols = append(cols, column{name: tag, index: f.Index})
		}
	}
	actual, _ := layouts.LoadOrStore(t, cols)
	return actual.([]column)
}

// ExtractDBColumns lists the "db" columns of T in declaration order.
//
//	ExtractDBColumns[quote.Lot]()
//	// id, row_version, quote_id, code, label, sort_order, margin_rate
func ExtractDBColumns[T any]() []string {
	layout := layoutOf(reflect.TypeOf((*T)(nil)).Elem())
	names := make([]string, len(layout))
	for i, c := range layout {
		names[i] = c.name
	}
	return names
}

// StructToMap returns the column values of a row struct (or pointer to
// one), keyed by column name. Non-struct values yield nil.
func StructToMap(v any) map[string]any {
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return nil
	}
	layout := layoutOf(rv.Type())
	out := make(map[string]any, len(layout))
	for _, c := range layout {
		out[c.name] = rv.FieldByIndex(c.index).Interface()
	}
	return out
}
