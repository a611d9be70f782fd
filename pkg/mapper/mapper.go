// Package mapper maps query result rows onto caller-supplied struct types
// via reflection, using `db` tags or one of three naming strategies to pair
// columns with fields.
package mapper

import (
	"reflect"
	"strings"

	"github.com/Chahine-tech/sqltwoway/pkg/sqlerr"
	"github.com/Chahine-tech/sqltwoway/pkg/value"
)

// NamingStrategy derives a row column name from a struct field name when
// the field carries no explicit `db:"..."` tag.
type NamingStrategy int

const (
	// AsIs uses the field name unchanged.
	AsIs NamingStrategy = iota
	// SnakeToCamel maps a snake_case column to a CamelCase field name.
	SnakeToCamel
	// CamelToSnake maps a CamelCase field name to a camelCase column (the
	// field name with its first letter lowered).
	CamelToSnake
)

func (n NamingStrategy) valid() bool {
	return n == AsIs || n == SnakeToCamel || n == CamelToSnake
}

// MapperOption configures a Mapper at construction time.
type MapperOption func(*options)

type options struct {
	naming NamingStrategy
}

// WithNamingStrategy sets the column-to-field naming convention used for
// struct fields without a `db` tag. The default is AsIs.
func WithNamingStrategy(n NamingStrategy) MapperOption {
	return func(o *options) { o.naming = n }
}

// Mapper maps map[string]value.Value rows onto struct type T.
type Mapper[T any] struct {
	naming NamingStrategy
	fields []fieldBinding
}

type fieldBinding struct {
	index  int
	column string
}

// NewMapper builds a Mapper for T, rejecting an invalid naming strategy
// immediately rather than at first use.
func NewMapper[T any](opts ...MapperOption) (*Mapper[T], error) {
	o := options{naming: AsIs}
	for _, opt := range opts {
		opt(&o)
	}
	if !o.naming.valid() {
		return nil, sqlerr.New(sqlerr.Configuration, "invalid naming strategy")
	}

	var zero T
	t := reflect.TypeOf(zero)
	if t == nil || t.Kind() != reflect.Struct {
		return nil, sqlerr.New(sqlerr.Configuration, "mapper target must be a struct type")
	}

	fields, err := fieldBindingsFor(t, o.naming)
	if err != nil {
		return nil, err
	}
	return &Mapper[T]{naming: o.naming, fields: fields}, nil
}

// fieldBindingsFor computes the column bindings for every exported field of
// t, shared by the generic Mapper[T] and the reflection-only MapInto.
func fieldBindingsFor(t reflect.Type, naming NamingStrategy) ([]fieldBinding, error) {
	var fields []fieldBinding
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		col := f.Tag.Get("db")
		if col == "" {
			col = deriveColumn(f.Name, naming)
		}
		if col == "-" {
			continue
		}
		fields = append(fields, fieldBinding{index: i, column: col})
	}
	return fields, nil
}

// deriveColumn computes the row column key a tagless field should look
// itself up under. SnakeToCamel names columns snake_case (the common SQL
// convention) against a CamelCase Go field, so the expected key is the
// field name lowered to snake_case. CamelToSnake is its mirror: the row's
// own keys are already camelCase, so only the leading letter is lowered.
func deriveColumn(fieldName string, n NamingStrategy) string {
	switch n {
	case SnakeToCamel:
		return camelToSnake(fieldName)
	case CamelToSnake:
		return lowerFirst(fieldName)
	default:
		return fieldName
	}
}

func camelToSnake(s string) string {
	var b strings.Builder
	for i, r := range s {
		if r >= 'A' && r <= 'Z' {
			if i > 0 {
				b.WriteByte('_')
			}
			b.WriteRune(r - 'A' + 'a')
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	r := []rune(s)
	if r[0] >= 'A' && r[0] <= 'Z' {
		r[0] = r[0] - 'A' + 'a'
	}
	return string(r)
}

// MapRow maps one row onto a new T. Unknown row columns are ignored; struct
// fields with no matching column keep their zero value.
func (m *Mapper[T]) MapRow(row map[string]value.Value) (T, error) {
	var out T
	v := reflect.ValueOf(&out).Elem()
	if err := mapRowInto(v, m.fields, row); err != nil {
		return out, err
	}
	return out, nil
}

// MapRows maps every row, stopping at the first mapping failure.
func (m *Mapper[T]) MapRows(rows []map[string]value.Value) ([]T, error) {
	out := make([]T, 0, len(rows))
	for _, r := range rows {
		v, err := m.MapRow(r)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func mapRowInto(v reflect.Value, fields []fieldBinding, row map[string]value.Value) error {
	t := v.Type()
	for _, fb := range fields {
		col, ok := row[fb.column]
		if !ok {
			continue
		}
		field := v.Field(fb.index)
		if err := assign(field, col); err != nil {
			return sqlerr.Wrap(sqlerr.Mapping, "field "+t.Field(fb.index).Name+" <- column "+fb.column, err)
		}
	}
	return nil
}

// MapInto maps rows onto dest, a pointer to a slice of struct (or pointer-
// to-struct) values, for callers that don't know T at compile time — the
// façade's Query/QueryOne use this instead of the generic Mapper[T].
func MapInto(dest any, rows []map[string]value.Value, naming NamingStrategy) error {
	dv := reflect.ValueOf(dest)
	if dv.Kind() != reflect.Ptr || dv.Elem().Kind() != reflect.Slice {
		return sqlerr.New(sqlerr.Configuration, "dest must be a pointer to a slice")
	}
	sliceVal := dv.Elem()
	elemType := sliceVal.Type().Elem()

	structType := elemType
	isPtr := elemType.Kind() == reflect.Ptr
	if isPtr {
		structType = elemType.Elem()
	}
	if structType.Kind() != reflect.Struct {
		return sqlerr.New(sqlerr.Configuration, "dest slice element must be a struct or struct pointer")
	}

	fields, err := fieldBindingsFor(structType, naming)
	if err != nil {
		return err
	}

	out := reflect.MakeSlice(sliceVal.Type(), 0, len(rows))
	for _, row := range rows {
		elem := reflect.New(structType)
		if err := mapRowInto(elem.Elem(), fields, row); err != nil {
			return err
		}
		if isPtr {
			out = reflect.Append(out, elem)
		} else {
			out = reflect.Append(out, elem.Elem())
		}
	}
	sliceVal.Set(out)
	return nil
}

func assign(field reflect.Value, v value.Value) error {
	switch field.Kind() {
	case reflect.String:
		if v.Kind() != value.Text && v.Kind() != value.Null {
			return sqlerr.New(sqlerr.Mapping, "expected text, got "+v.Kind().String())
		}
		field.SetString(v.Text())
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if v.Kind() != value.Int && v.Kind() != value.Null {
			return sqlerr.New(sqlerr.Mapping, "expected int, got "+v.Kind().String())
		}
		field.SetInt(v.Int())
	case reflect.Float32, reflect.Float64:
		if v.Kind() != value.Float && v.Kind() != value.Int && v.Kind() != value.Null {
			return sqlerr.New(sqlerr.Mapping, "expected float, got "+v.Kind().String())
		}
		if v.Kind() == value.Int {
			field.SetFloat(float64(v.Int()))
		} else {
			field.SetFloat(v.Float())
		}
	case reflect.Bool:
		if v.Kind() != value.Bool && v.Kind() != value.Null {
			return sqlerr.New(sqlerr.Mapping, "expected bool, got "+v.Kind().String())
		}
		field.SetBool(v.Bool())
	case reflect.Slice:
		if field.Type().Elem().Kind() == reflect.Uint8 {
			if v.Kind() != value.Bytes && v.Kind() != value.Null {
				return sqlerr.New(sqlerr.Mapping, "expected bytes, got "+v.Kind().String())
			}
			field.SetBytes(v.Bytes())
			return nil
		}
		return sqlerr.New(sqlerr.Mapping, "unsupported slice field type "+field.Type().String())
	case reflect.Ptr:
		if v.Kind() == value.Null {
			field.Set(reflect.Zero(field.Type()))
			return nil
		}
		elem := reflect.New(field.Type().Elem())
		if err := assign(elem.Elem(), v); err != nil {
			return err
		}
		field.Set(elem)
	default:
		return sqlerr.New(sqlerr.Mapping, "unsupported field kind "+field.Kind().String())
	}
	return nil
}
