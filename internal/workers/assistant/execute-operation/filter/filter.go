package filter

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"restaurant-assistant/internal/models"
)

const (
	OpGt       = "$gt"
	OpGte      = "$gte"
	OpLt       = "$lt"
	OpLte      = "$lte"
	OpNe       = "$ne"
	OpIn       = "$in"
	OpLteField = "$lteField"
	OpLtField  = "$ltField"
)

var comparators = []string{OpGt, OpGte, OpLt, OpLte, OpNe, OpIn, OpLteField, OpLtField}

func ComparatorNames() []string {
	out := make([]string, len(comparators))
	copy(out, comparators)
	return out
}

// dateFields are matched against relative windows when given a window name.
var dateFields = map[string]bool{
	models.FieldCreatedAt: true,
	models.FieldUpdatedAt: true,
}

// Evaluator applies filters at a fixed request time.
type Evaluator struct {
	Now      time.Time
	Location *time.Location
}

// Apply returns the documents matching every filter, preserving order.
func (e Evaluator) Apply(docs []models.Document, filters map[string]interface{}) ([]models.Document, error) {
	keys := make([]string, 0, len(filters))
	for k := range filters {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		if err := e.validate(k, filters[k]); err != nil {
			return nil, err
		}
	}

	out := make([]models.Document, 0, len(docs))
	for _, doc := range docs {
		if e.matchAll(doc, keys, filters) {
			out = append(out, doc)
		}
	}
	return out, nil
}

func (e Evaluator) validate(key string, cond interface{}) error {
	m, ok := cond.(map[string]interface{})
	if !ok {
		return nil
	}
	for op := range m {
		known := false
		for _, c := range comparators {
			if c == op {
				known = true
				break
			}
		}
		if !known {
			return fmt.Errorf("unsupported comparator %q on %s", op, key)
		}
	}
	return nil
}

func (e Evaluator) matchAll(doc models.Document, keys []string, filters map[string]interface{}) bool {
	for _, k := range keys {
		if !e.match(doc, k, filters[k]) {
			return false
		}
	}
	return true
}

func (e Evaluator) match(doc models.Document, key string, cond interface{}) bool {
	values := Values(doc, key)

	switch c := cond.(type) {
	case string:
		if dateFields[key] {
			if start, end, ok := Window(c, e.Now, e.Location); ok {
				return anyValue(values, func(v interface{}) bool {
					t, ok := models.ParseTimestamp(v)
					return ok && !t.Before(start) && t.Before(end)
				})
			}
		}
		return anyValue(values, func(v interface{}) bool { return equal(v, c) })

	case []interface{}:
		return anyValue(values, func(v interface{}) bool { return memberOf(v, c) })

	case []string:
		list := make([]interface{}, len(c))
		for i, s := range c {
			list[i] = s
		}
		return anyValue(values, func(v interface{}) bool { return memberOf(v, list) })

	case map[string]interface{}:
		for op, operand := range c {
			if !e.compare(doc, values, op, operand) {
				return false
			}
		}
		return true

	default:
		return anyValue(values, func(v interface{}) bool { return equal(v, c) })
	}
}

func (e Evaluator) compare(doc models.Document, values []interface{}, op string, operand interface{}) bool {
	switch op {
	case OpNe:
		return !anyValue(values, func(v interface{}) bool { return equal(v, operand) })
	case OpIn:
		list, ok := operand.([]interface{})
		if !ok {
			return false
		}
		return anyValue(values, func(v interface{}) bool { return memberOf(v, list) })
	case OpLteField, OpLtField:
		field, _ := operand.(string)
		limit, ok := models.ToFloat(doc[field])
		if !ok {
			return false
		}
		return anyValue(values, func(v interface{}) bool {
			n, ok := models.ToFloat(v)
			if !ok {
				return false
			}
			if op == OpLteField {
				return n <= limit
			}
			return n < limit
		})
	}

	// Numeric comparisons; timestamps compare against timestamps.
	if bound, ok := models.ToFloat(operand); ok {
		return anyValue(values, func(v interface{}) bool {
			n, ok := models.ToFloat(v)
			return ok && ordered(op, n, bound)
		})
	}
	if bound, ok := models.ParseTimestamp(operand); ok {
		return anyValue(values, func(v interface{}) bool {
			t, ok := models.ParseTimestamp(v)
			return ok && ordered(op, float64(t.UnixNano()), float64(bound.UnixNano()))
		})
	}
	return false
}

func ordered(op string, n, bound float64) bool {
	switch op {
	case OpGt:
		return n > bound
	case OpGte:
		return n >= bound
	case OpLt:
		return n < bound
	case OpLte:
		return n <= bound
	}
	return false
}

// Values resolves a dotted path, expanding lists at every step.
func Values(doc models.Document, path string) []interface{} {
	current := []interface{}{map[string]interface{}(doc)}
	for _, part := range strings.Split(path, ".") {
		var next []interface{}
		for _, v := range current {
			switch node := v.(type) {
			case map[string]interface{}:
				if child, ok := node[part]; ok {
					next = append(next, expand(child)...)
				}
			case models.Document:
				if child, ok := node[part]; ok {
					next = append(next, expand(child)...)
				}
			}
		}
		current = next
	}
	return current
}

func expand(v interface{}) []interface{} {
	switch list := v.(type) {
	case []interface{}:
		return list
	case []string:
		out := make([]interface{}, len(list))
		for i, s := range list {
			out[i] = s
		}
		return out
	case []map[string]interface{}:
		out := make([]interface{}, len(list))
		for i, m := range list {
			out[i] = m
		}
		return out
	}
	return []interface{}{v}
}

func anyValue(values []interface{}, pred func(interface{}) bool) bool {
	for _, v := range values {
		if pred(v) {
			return true
		}
	}
	return false
}

func memberOf(v interface{}, list []interface{}) bool {
	for _, item := range list {
		if equal(v, item) {
			return true
		}
	}
	return false
}

// equal compares numerically when both sides are numbers, otherwise as
// case-insensitive strings.
func equal(a, b interface{}) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if ab, ok := a.(bool); ok {
		bb, ok := b.(bool)
		return ok && ab == bb
	}
	af, aok := models.ToFloat(a)
	bf, bok := models.ToFloat(b)
	if aok && bok {
		return af == bf
	}
	return strings.EqualFold(fmt.Sprint(a), fmt.Sprint(b))
}

// HasListTarget reports whether any filter selects by a list of values.
func HasListTarget(filters map[string]interface{}) bool {
	for _, cond := range filters {
		switch c := cond.(type) {
		case []interface{}, []string:
			return true
		case map[string]interface{}:
			if _, ok := c[OpIn]; ok {
				return true
			}
		}
	}
	return false
}
