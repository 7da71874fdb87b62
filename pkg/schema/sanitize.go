package schema

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

var (
	// DefaultMaxInputSize bounds a single string value, in bytes.
	DefaultMaxInputSize = 4096
	// EnvMaxInputSize overrides DefaultMaxInputSize.
	EnvMaxInputSize = "STATECRAFT_MAX_INPUT_SIZE"
)

var (
	ErrInputTooLarge = errors.New("input exceeds maximum allowed size")
	ErrInvalidUTF8   = errors.New("input contains invalid UTF-8 sequences")
)

// SanitizeInput enforces the size limit, validates UTF-8 and strips control
// characters other than newline, tab and carriage return.
func SanitizeInput(input string) (string, error) {
	limit := getMaxInputSize()
	if len(input) > limit {
		// Rejected rather than truncated so that what is stored is what was sent.
		return "", fmt.Errorf("%w: size=%d limit=%d", ErrInputTooLarge, len(input), limit)
	}

	if !utf8.ValidString(input) {
		return "", ErrInvalidUTF8
	}

	clean := true
	for _, r := range input {
		if unicode.IsControl(r) && !isSafeControl(r) {
			clean = false
			break
		}
	}
	if clean {
		return input, nil
	}

	var b strings.Builder
	b.Grow(len(input))
	for _, r := range input {
		if !unicode.IsControl(r) || isSafeControl(r) {
			b.WriteRune(r)
		}
	}
	return b.String(), nil
}

// SanitizePayload applies SanitizeInput to every string in a JSON-shaped
// value, in place.
func SanitizePayload(payload map[string]any) error {
	for k, v := range payload {
		clean, err := sanitizeValue(v)
		if err != nil {
			return fmt.Errorf("field %q: %w", k, err)
		}
		payload[k] = clean
	}
	return nil
}

func sanitizeValue(v any) (any, error) {
	switch val := v.(type) {
	case string:
		return SanitizeInput(val)
	case map[string]any:
		return val, SanitizePayload(val)
	case []any:
		for i, item := range val {
			clean, err := sanitizeValue(item)
			if err != nil {
				return nil, fmt.Errorf("element %d: %w", i, err)
			}
			val[i] = clean
		}
		return val, nil
	}
	return v, nil
}

// CheckUTF8 reports the first string in v, at any depth, that is not valid
// UTF-8. Run it before encoding v: encoding/json replaces invalid bytes
// silently.
func CheckUTF8(v any) error {
	return checkUTF8(reflect.ValueOf(v), "")
}

func checkUTF8(v reflect.Value, path string) error {
	switch v.Kind() {
	case reflect.String:
		if !utf8.ValidString(v.String()) {
			if path == "" {
				return ErrInvalidUTF8
			}
			return fmt.Errorf("field %q: %w", path, ErrInvalidUTF8)
		}
	case reflect.Pointer, reflect.Interface:
		if !v.IsNil() {
			return checkUTF8(v.Elem(), path)
		}
	case reflect.Map:
		iter := v.MapRange()
		for iter.Next() {
			key := fmt.Sprint(iter.Key().Interface())
			if err := checkUTF8(iter.Key(), join(path, key)); err != nil {
				return err
			}
			if err := checkUTF8(iter.Value(), join(path, key)); err != nil {
				return err
			}
		}
	case reflect.Slice, reflect.Array:
		if v.Type().Elem().Kind() == reflect.Uint8 {
			return nil
		}
		for i := 0; i < v.Len(); i++ {
			if err := checkUTF8(v.Index(i), join(path, strconv.Itoa(i))); err != nil {
				return err
			}
		}
	case reflect.Struct:
		t := v.Type()
		for i := 0; i < v.NumField(); i++ {
			if !t.Field(i).IsExported() {
				continue
			}
			if err := checkUTF8(v.Field(i), join(path, t.Field(i).Name)); err != nil {
				return err
			}
		}
	}
	return nil
}

func join(path, key string) string {
	if path == "" {
		return key
	}
	return path + "." + key
}

func isSafeControl(r rune) bool {
	return r == '\n' || r == '\t' || r == '\r'
}

func getMaxInputSize() int {
	if val := os.Getenv(EnvMaxInputSize); val != "" {
		if size, err := strconv.Atoi(val); err == nil && size > 0 {
			return size
		}
	}
	return DefaultMaxInputSize
}
