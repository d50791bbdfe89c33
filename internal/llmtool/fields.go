package llmtool

import (
	"fmt"
	"reflect"
	"strings"
	"unicode"
)

// Struct tags read by FieldsFromStruct:
//
//	json:"name,omitempty"  field name; omitempty makes the field optional
//	prompt_desc:"..."      description shown to the model
//	prompt_type:"..."      overrides the derived type name
//	prompt:"-"             leaves the field out
//	prompt:"optional"      or "required", overriding the default
const (
	tagDesc   = "prompt_desc"
	tagType   = "prompt_type"
	tagPrompt = "prompt"
)

// FieldsFromStruct derives the output schema of a prompt from the struct
// the reply is decoded into, so the two cannot drift apart.
func FieldsFromStruct(v any) ([]PromptField, error) {
	if v == nil {
		return nil, fmt.Errorf("llmtool: nil value")
	}
	t := reflect.TypeOf(v)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("llmtool: %s is not a struct", t)
	}
	return structFields(t, map[reflect.Type]bool{t: true}), nil
}

// MustFieldsFromStruct is FieldsFromStruct for package-level prompt specs.
func MustFieldsFromStruct(v any) []PromptField {
	fields, err := FieldsFromStruct(v)
	if err != nil {
		panic(err)
	}
	return fields
}

func structFields(t reflect.Type, seen map[reflect.Type]bool) []PromptField {
	var out []PromptField
	for _, f := range reflect.VisibleFields(t) {
		if !f.IsExported() || f.Anonymous {
			continue
		}
		name, omitempty := jsonName(f)
		if name == "" {
			continue
		}
		flags := tagFlags(f.Tag.Get(tagPrompt))
		if flags["-"] || flags["omit"] {
			continue
		}
		pf := PromptField{
			Name:        name,
			Type:        f.Tag.Get(tagType),
			Required:    !omitempty,
			Description: strings.TrimSpace(f.Tag.Get(tagDesc)),
		}
		switch {
		case flags["required"]:
			pf.Required = true
		case flags["optional"]:
			pf.Required = false
		}
		if pf.Type == "" {
			pf.Type = typeName(f.Type)
		}
		if inner := namedStruct(f.Type); inner != nil && !seen[inner] {
			seen[inner] = true
			pf.Fields = structFields(inner, seen)
			delete(seen, inner)
		}
		out = append(out, pf)
	}
	return out
}

func jsonName(f reflect.StructField) (name string, omitempty bool) {
	parts := strings.Split(f.Tag.Get("json"), ",")
	switch parts[0] {
	case "-":
		return "", false
	case "":
		name = snake(f.Name)
	default:
		name = parts[0]
	}
	for _, p := range parts[1:] {
		if p == "omitempty" || p == "omitzero" {
			omitempty = true
		}
	}
	return name, omitempty
}

func tagFlags(tag string) map[string]bool {
	if tag == "" {
		return nil
	}
	flags := make(map[string]bool)
	for _, p := range strings.Split(tag, ",") {
		flags[strings.TrimSpace(p)] = true
	}
	return flags
}

// namedStruct unwraps pointers, slices and arrays down to a named struct
// type. time.Time and friends are treated as scalars.
func namedStruct(t reflect.Type) reflect.Type {
	for {
		switch t.Kind() {
		case reflect.Pointer, reflect.Slice, reflect.Array:
			t = t.Elem()
			continue
		case reflect.Struct:
			if t.Name() == "" || t.PkgPath() == "time" {
				return nil
			}
			return t
		}
		return nil
	}
}

func typeName(t reflect.Type) string {
	switch t.Kind() {
	case reflect.Pointer:
		return typeName(t.Elem())
	case reflect.Slice, reflect.Array:
		return "[]" + typeName(t.Elem())
	case reflect.Map:
		return "map[" + typeName(t.Key()) + "]" + typeName(t.Elem())
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return "int"
	case reflect.Float32, reflect.Float64:
		return "number"
	case reflect.Interface:
		return "any"
	case reflect.Struct:
		if t.PkgPath() == "time" {
			return "string"
		}
		if t.Name() == "" {
			return "object"
		}
		return t.Name()
	}
	return t.Kind().String()
}

// snake converts a Go identifier such as SourceFiles or HTTPPort to
// source_files or http_port.
func snake(s string) string {
	rs := []rune(s)
	var b strings.Builder
	for i, r := range rs {
		if unicode.IsUpper(r) && i > 0 {
			prevLower := unicode.IsLower(rs[i-1])
			nextLower := i+1 < len(rs) && unicode.IsLower(rs[i+1])
			if prevLower || (nextLower && unicode.IsUpper(rs[i-1])) {
				b.WriteByte('_')
			}
		}
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String()
}
