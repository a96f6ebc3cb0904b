// Package patch applies sparse field updates to records. Every resource
// declares a Schema listing the fields a caller may touch; anything outside
// the schema is rejected instead of being written through to storage.
package patch

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

// ErrInvalidPatch is matched by every ValidationError.
var ErrInvalidPatch = errors.New("invalid patch")

// Int and Ref values must fit a 32-bit column.
var errOutOfRange = errors.New("out of 32-bit integer range")

type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidPatch
}

type Kind int

const (
	String Kind = iota
	Decimal
	Int
	// Ref is a nullable foreign key. "" and null both clear it.
	Ref
)

func (k Kind) String() string {
	switch k {
	case String:
		return "string"
	case Decimal:
		return "decimal"
	case Int:
		return "integer"
	case Ref:
		return "reference"
	default:
		return "unknown"
	}
}

type Field struct {
	Name        string
	Kind        Kind
	Required    bool
	NonNegative bool

	// MaxLen bounds a String in characters. Zero means unbounded.
	MaxLen int

	// Precision and Scale bound a Decimal the way NUMERIC(precision, scale)
	// does: the value is rounded to Scale places and must then have at most
	// Precision-Scale integer digits. Zero Precision means unbounded.
	Precision int32
	Scale     int32
}

// Change is one normalized assignment. Value is a string, decimal.Decimal,
// int or *int depending on the field kind.
type Change struct {
	Field string
	Value any
}

type Changes []Change

func (c Changes) Get(field string) (any, bool) {
	for _, ch := range c {
		if ch.Field == field {
			return ch.Value, true
		}
	}
	return nil, false
}

func (c Changes) Fields() []string {
	names := make([]string, len(c))
	for i, ch := range c {
		names[i] = ch.Field
	}
	return names
}

type Schema struct {
	resource string
	fields   []Field
	index    map[string]int
}

func NewSchema(resource string, fields ...Field) *Schema {
	s := &Schema{
		resource: resource,
		fields:   fields,
		index:    make(map[string]int, len(fields)),
	}
	for i, f := range fields {
		s.index[f.Name] = i
	}
	return s
}

func (s *Schema) Resource() string { return s.resource }

func (s *Schema) Allows(field string) bool {
	_, ok := s.index[field]
	return ok
}

// Normalize checks every key of raw against the schema and converts its
// value to the field's kind. The result follows schema order so the same
// patch always produces the same statement.
func (s *Schema) Normalize(raw map[string]any) (Changes, error) {
	if len(raw) == 0 {
		return nil, &ValidationError{Reason: "no update data provided"}
	}

	for key := range raw {
		if !s.Allows(key) {
			return nil, &ValidationError{Field: key, Reason: fmt.Sprintf("not an updatable %s field", s.resource)}
		}
	}

	changes := make(Changes, 0, len(raw))
	for _, f := range s.fields {
		v, ok := raw[f.Name]
		if !ok {
			continue
		}
		value, err := f.normalize(v)
		if err != nil {
			return nil, err
		}
		changes = append(changes, Change{Field: f.Name, Value: value})
	}

	return changes, nil
}

func (f Field) normalize(v any) (any, error) {
	switch f.Kind {
	case String:
		if v == nil {
			return nil, f.invalid("must not be null")
		}
		str, ok := v.(string)
		if !ok {
			return nil, f.invalid("must be a string")
		}
		if f.Required && strings.TrimSpace(str) == "" {
			return nil, f.invalid("must not be empty")
		}
		if f.MaxLen > 0 && utf8.RuneCountInString(str) > f.MaxLen {
			return nil, f.invalid(fmt.Sprintf("must be at most %d characters", f.MaxLen))
		}
		return str, nil

	case Decimal:
		if v == nil {
			return nil, f.invalid("must not be null")
		}
		d, err := toDecimal(v)
		if err != nil {
			return nil, f.invalid("must be a number")
		}
		if f.NonNegative && d.IsNegative() {
			return nil, f.invalid("must not be negative")
		}
		if f.Precision > 0 {
			limit := decimal.New(1, f.Precision-f.Scale)
			if d.Round(f.Scale).Abs().GreaterThanOrEqual(limit) {
				return nil, f.invalid(fmt.Sprintf("must be less than %s", limit.String()))
			}
		}
		return d, nil

	case Int:
		if v == nil {
			return nil, f.invalid("must not be null")
		}
		if _, isString := v.(string); isString {
			return nil, f.invalid("must be an integer")
		}
		n, err := toInt(v)
		if errors.Is(err, errOutOfRange) {
			return nil, f.invalid("is out of range")
		}
		if err != nil {
			return nil, f.invalid("must be an integer")
		}
		if f.NonNegative && n < 0 {
			return nil, f.invalid("must not be negative")
		}
		return n, nil

	case Ref:
		if v == nil {
			return (*int)(nil), nil
		}
		if str, ok := v.(string); ok {
			str = strings.TrimSpace(str)
			if str == "" {
				return (*int)(nil), nil
			}
			v = str
		}
		n, err := toInt(v)
		if err != nil || n <= 0 {
			return nil, f.invalid("must be a positive id, an empty string or null")
		}
		return &n, nil
	}

	return nil, f.invalid(fmt.Sprintf("unsupported kind %s", f.Kind))
}

func (f Field) invalid(reason string) error {
	return &ValidationError{Field: f.Name, Reason: reason}
}

func toDecimal(v any) (decimal.Decimal, error) {
	switch n := v.(type) {
	case decimal.Decimal:
		return n, nil
	case json.Number:
		return decimal.NewFromString(n.String())
	case string:
		return decimal.NewFromString(strings.TrimSpace(n))
	case float64:
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return decimal.Decimal{}, fmt.Errorf("not finite")
		}
		return decimal.NewFromFloat(n), nil
	case float32:
		return toDecimal(float64(n))
	case int:
		return decimal.NewFromInt(int64(n)), nil
	case int64:
		return decimal.NewFromInt(n), nil
	}
	return decimal.Decimal{}, fmt.Errorf("unsupported type %T", v)
}

// toInt converts v to an int that fits a 32-bit column.
func toInt(v any) (int, error) {
	var n int64
	switch x := v.(type) {
	case int:
		n = int64(x)
	case int64:
		n = x
	case json.Number:
		i, err := x.Int64()
		if err != nil {
			if errors.Is(err, strconv.ErrRange) {
				return 0, errOutOfRange
			}
			return 0, err
		}
		n = i
	case float64:
		if x != math.Trunc(x) || math.IsInf(x, 0) {
			return 0, fmt.Errorf("not a whole number")
		}
		if x < math.MinInt32 || x > math.MaxInt32 {
			return 0, errOutOfRange
		}
		n = int64(x)
	case string:
		i, err := strconv.ParseInt(x, 10, 64)
		if err != nil {
			if errors.Is(err, strconv.ErrRange) {
				return 0, errOutOfRange
			}
			return 0, err
		}
		n = i
	default:
		return 0, fmt.Errorf("unsupported type %T", v)
	}

	if n < math.MinInt32 || n > math.MaxInt32 {
		return 0, errOutOfRange
	}
	return int(n), nil
}
