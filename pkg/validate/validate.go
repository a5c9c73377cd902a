// Package validate provides struct-tag validation for request payloads.
//
// Supported rules (comma-separated in the `validate` tag):
//
//	required          field must not be zero/empty (nil pointers are empty)
//	nullable          if empty, skip all remaining rules for this field
//	email             valid email address
//	url               valid http(s) URL
//	hex24             24 character hex identifier
//	min=N / max=N     string: char length | number: value | slice: length
//	gt=N / gte=N      number > N / >= N
//	lte=N             number <= N
//	in=a,b,c          value must be one of the listed items
//	dive              validate every struct element of a slice
//
// Pointer fields are dereferenced before rules run, so optional JSON fields
// can be declared as *string and still carry an `in=` rule.
//
//	type Patch struct {
//	    Status *string `json:"status" validate:"nullable,in=pending,paid"`
//	}
package validate

import (
	"fmt"
	"net/url"
	"reflect"
	"regexp"
	"strconv"
	"strings"
)

// Struct validates all exported fields of v that carry a `validate` tag.
// Returns a map of fieldName → error message; empty map means no errors.
// Slice elements validated through `dive` report as "items.0.name".
func Struct(v interface{}) map[string]string {
	errs := make(map[string]string)
	validateStruct(reflect.ValueOf(v), "", errs)
	return errs
}

// HasErrors returns true when the errs map is non-empty.
func HasErrors(errs map[string]string) bool { return len(errs) > 0 }

func validateStruct(rv reflect.Value, prefix string, errs map[string]string) {
	for rv.Kind() == reflect.Ptr {
		if rv.IsNil() {
			return
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return
	}
	rt := rv.Type()

	for i := 0; i < rt.NumField(); i++ {
		field := rt.Field(i)
		if !field.IsExported() {
			continue
		}

		tag := field.Tag.Get("validate")
		if tag == "" {
			continue
		}

		name := prefix + jsonFieldName(field)
		rules := splitRules(tag)
		value := deref(rv.Field(i))

		if hasRule(rules, "nullable") && isEmpty(value) {
			continue
		}

		failed := false
		for _, rule := range rules {
			if rule == "nullable" || rule == "dive" {
				continue
			}
			if msg := applyRule(rule, name, value); msg != "" {
				errs[name] = msg
				failed = true
				break
			}
		}

		if !failed && hasRule(rules, "dive") && value.Kind() == reflect.Slice {
			for j := 0; j < value.Len(); j++ {
				validateStruct(value.Index(j), fmt.Sprintf("%s.%d.", name, j), errs)
			}
		}
	}
}

func applyRule(rule, field string, v reflect.Value) string {
	key, param, _ := strings.Cut(rule, "=")
	raw := ""
	if v.IsValid() {
		raw = fmt.Sprintf("%v", v.Interface())
	}

	switch key {
	case "required":
		if isEmpty(v) {
			return fmt.Sprintf("The %s field is required.", field)
		}
	case "email":
		if !emailRE.MatchString(raw) {
			return fmt.Sprintf("The %s must be a valid email address.", field)
		}
	case "url":
		u, err := url.ParseRequestURI(raw)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
			return fmt.Sprintf("The %s must be a valid URL.", field)
		}
	case "hex24":
		if !hex24RE.MatchString(raw) {
			return fmt.Sprintf("The %s must be a valid identifier.", field)
		}
	case "min":
		n := mustParseFloat(param)
		if measure(v, raw) < n {
			return fmt.Sprintf("The %s must be at least %s%s.", field, param, unit(v))
		}
	case "max":
		n := mustParseFloat(param)
		if measure(v, raw) > n {
			return fmt.Sprintf("The %s must not be greater than %s%s.", field, param, unit(v))
		}
	case "gt":
		if !isNumericKind(v) || toFloat(v) <= mustParseFloat(param) {
			return fmt.Sprintf("The %s must be greater than %s.", field, param)
		}
	case "gte":
		if !isNumericKind(v) || toFloat(v) < mustParseFloat(param) {
			return fmt.Sprintf("The %s must be greater than or equal to %s.", field, param)
		}
	case "lte":
		if !isNumericKind(v) || toFloat(v) > mustParseFloat(param) {
			return fmt.Sprintf("The %s must be less than or equal to %s.", field, param)
		}
	case "in":
		for _, a := range strings.Split(param, ",") {
			if raw == strings.TrimSpace(a) {
				return ""
			}
		}
		return fmt.Sprintf("The selected %s is invalid.", field)
	}

	return ""
}

var (
	emailRE = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
	hex24RE = regexp.MustCompile(`^[0-9a-fA-F]{24}$`)
)

func deref(v reflect.Value) reflect.Value {
	for v.Kind() == reflect.Ptr || v.Kind() == reflect.Interface {
		if v.IsNil() {
			return reflect.Value{}
		}
		v = v.Elem()
	}
	return v
}

func isEmpty(v reflect.Value) bool {
	if !v.IsValid() {
		return true
	}
	switch v.Kind() {
	case reflect.String:
		return strings.TrimSpace(v.String()) == ""
	case reflect.Slice, reflect.Map, reflect.Array:
		return v.Len() == 0
	case reflect.Bool:
		return false
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return v.Int() == 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return v.Uint() == 0
	case reflect.Float32, reflect.Float64:
		return v.Float() == 0
	}
	return false
}

func measure(v reflect.Value, raw string) float64 {
	switch {
	case isNumericKind(v):
		return toFloat(v)
	case v.Kind() == reflect.Slice || v.Kind() == reflect.Map:
		return float64(v.Len())
	default:
		return float64(len([]rune(raw)))
	}
}

func unit(v reflect.Value) string {
	switch {
	case isNumericKind(v):
		return ""
	case v.Kind() == reflect.Slice || v.Kind() == reflect.Map:
		return " items"
	default:
		return " characters"
	}
}

func isNumericKind(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}

func toFloat(v reflect.Value) float64 {
	switch v.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(v.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(v.Uint())
	case reflect.Float32, reflect.Float64:
		return v.Float()
	}
	return 0
}

func mustParseFloat(s string) float64 {
	f, _ := strconv.ParseFloat(strings.TrimSpace(s), 64)
	return f
}

func jsonFieldName(f reflect.StructField) string {
	name := f.Tag.Get("json")
	if name == "" || name == "-" {
		return strings.ToLower(f.Name)
	}
	if idx := strings.Index(name, ","); idx != -1 {
		name = name[:idx]
	}
	return name
}

var knownRules = []string{
	"required", "nullable", "email", "url", "hex24", "dive",
	"min=", "max=", "gt=", "gte=", "lte=", "in=",
}

// splitRules splits the tag on commas while keeping the values of an in=
// list together: "required,in=a,b,max=3" → ["required","in=a,b","max=3"].
func splitRules(tag string) []string {
	var rules []string
	for _, token := range strings.Split(tag, ",") {
		token = strings.TrimSpace(token)
		if token == "" {
			continue
		}
		last := len(rules) - 1
		if last >= 0 && strings.HasPrefix(rules[last], "in=") && !isRuleStart(token) {
			rules[last] += "," + token
			continue
		}
		rules = append(rules, token)
	}
	return rules
}

func isRuleStart(token string) bool {
	for _, k := range knownRules {
		if strings.HasSuffix(k, "=") {
			if strings.HasPrefix(token, k) {
				return true
			}
		} else if token == k {
			return true
		}
	}
	return false
}

func hasRule(rules []string, target string) bool {
	for _, r := range rules {
		if r == target {
			return true
		}
	}
	return false
}
