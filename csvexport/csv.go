// Package csvexport turns flat records into the comma-separated text the
// dashboard offers for download.
package csvexport

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
)

const ContentType = "text/csv;charset=utf-8"

// Record is one row of an export, keyed by field name.
type Record map[string]any

// object cells are rendered the way a browser's JSON.stringify would render them
var canonicalJSON = jsoniter.Config{EscapeHTML: false, SortMapKeys: true}.Froze()

// Encode renders records as a header row followed by one row per record, in
// the column order given by fields. It reports false, and returns nothing,
// when there are no records.
func Encode(records []Record, fields []string) ([]byte, bool) {
	if len(records) == 0 {
		return nil, false
	}
	var b bytes.Buffer
	b.WriteString(strings.Join(fields, ","))
	b.WriteByte('\n')
	for i, rec := range records {
		if i > 0 {
			b.WriteByte('\n')
		}
		for j, field := range fields {
			if j > 0 {
				b.WriteByte(',')
			}
			b.WriteString(Cell(rec[field]))
		}
	}
	return b.Bytes(), true
}

// Cell renders a single value. Maps, slices, arrays and structs become quoted
// JSON; scalars are quoted only when they contain a comma, a quote or a newline.
func Cell(v any) string {
	v = indirect(v)
	if v == nil {
		return ""
	}
	if isObject(v) {
		b, err := canonicalJSON.Marshal(v)
		if err != nil {
			b = []byte(fmt.Sprint(v))
		}
		return quote(string(b))
	}
	s := scalar(v)
	if strings.ContainsAny(s, ",\"\n") {
		return quote(s)
	}
	return s
}

// Filename returns "{base}_{YYYY-MM-DD}.csv" for the UTC date of now.
func Filename(base string, now time.Time) string {
	return fmt.Sprintf("%s_%s.csv", base, now.UTC().Format("2006-01-02"))
}

// WriteFile encodes records into a dated file under dir. No file is created
// for an empty export; written reports whether one was.
func WriteFile(dir, base string, now time.Time, records []Record, fields []string) (path string, written bool, err error) {
	data, ok := Encode(records, fields)
	if !ok {
		return "", false, nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", false, fmt.Errorf("create export dir: %w", err)
	}
	path = filepath.Join(dir, Filename(base, now))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", false, fmt.Errorf("write %s: %w", path, err)
	}
	return path, true, nil
}

func quote(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

// indirect unwraps pointers and interfaces; nil pointers, maps and slices
// count as missing values.
func indirect(v any) any {
	if v == nil {
		return nil
	}
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return nil
		}
		rv = rv.Elem()
	}
	switch rv.Kind() {
	case reflect.Map, reflect.Slice:
		if rv.IsNil() {
			return nil
		}
	}
	return rv.Interface()
}

func isObject(v any) bool {
	if _, ok := v.(time.Time); ok {
		return false
	}
	switch reflect.TypeOf(v).Kind() {
	case reflect.Map, reflect.Slice, reflect.Array, reflect.Struct:
		return true
	}
	return false
}

func scalar(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case bool:
		return strconv.FormatBool(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	case time.Time:
		return x.Format(time.RFC3339)
	case fmt.Stringer:
		return x.String()
	}
	return fmt.Sprint(v)
}
