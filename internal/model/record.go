/*
PURPOSE:
  Parses generated-output and context records and renders them as text.

REQUIREMENTS:
  User-specified:
  - Strings and lists of strings are kept; other values are dropped.
  - Context is the newline join of entry descriptions.

  Implementation-discovered:
  - Field order must follow the document, so records are walked with gjson instead of decoded into maps.

ARCHITECTURE INTEGRATION:
  - Called by: internal/engine

ERROR HANDLING:
  - Malformed JSON or a non-object document is an error.

IMPLEMENTATION RULES:
  - Duplicate keys keep their first position and last value.

USAGE:
  rec, err := model.ParseOutputRecord(data)
  text := rec.Render(model.RenderJoinLists)

SELF-HEALING INSTRUCTIONS:
  - None.

RELATED FILES:
  - internal/model/types.go

MAINTENANCE:
  - Add value kinds to ClassifyValue.
*/

package model

import (
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
)

// ValueKind classifies a generated-output field value.
type ValueKind int

const (
	// KindOther is any shape that is neither a string nor a list of strings. It is dropped.
	KindOther ValueKind = iota
	// KindString is a plain string value.
	KindString
	// KindStringList is a list whose elements are all strings (possibly empty).
	KindStringList
)

// FieldValue is the tagged union of the value shapes a generated-output field can take.
type FieldValue struct {
	Kind ValueKind
	Str  string
	List []string
}

// Field is one named value of a generated-output record, in document order.
type Field struct {
	Name  string
	Value FieldValue
}

// OutputRecord is a parsed generated-output file.
type OutputRecord []Field

// RenderMode selects how an OutputRecord is flattened to text.
type RenderMode int

const (
	// RenderJoinLists keeps strings and joins string lists with "; ".
	RenderJoinLists RenderMode = iota
	// RenderStringsOnly keeps string fields and drops lists.
	RenderStringsOnly
)

// ClassifyValue maps a JSON value onto the FieldValue union.
func ClassifyValue(v gjson.Result) FieldValue {
	switch {
	case v.Type == gjson.String:
		return FieldValue{Kind: KindString, Str: v.Str}
	case v.IsArray():
		elems := v.Array()
		list := make([]string, 0, len(elems))
		for _, e := range elems {
			if e.Type != gjson.String {
				return FieldValue{Kind: KindOther}
			}
			list = append(list, e.Str)
		}
		return FieldValue{Kind: KindStringList, List: list}
	default:
		return FieldValue{Kind: KindOther}
	}
}

// ParseOutputRecord reads a generated-output JSON object, preserving field order.
func ParseOutputRecord(data []byte) (OutputRecord, error) {
	entries, err := parseObject(data)
	if err != nil {
		return nil, err
	}

	rec := make(OutputRecord, 0, len(entries))
	for _, e := range entries {
		rec = append(rec, Field{Name: e.key, Value: ClassifyValue(e.value)})
	}
	return rec, nil
}

// Render flattens the record into "<field>: <value>" lines.
func (r OutputRecord) Render(mode RenderMode) string {
	lines := make([]string, 0, len(r))
	for _, f := range r {
		switch f.Value.Kind {
		case KindString:
			lines = append(lines, f.Name+": "+f.Value.Str)
		case KindStringList:
			if mode == RenderStringsOnly {
				continue
			}
			lines = append(lines, f.Name+": "+strings.Join(f.Value.List, "; "))
		}
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

// ContextDescriptions returns the description of every object-shaped entry of a
// context record, in document order. Entries without a string description
// contribute "". Non-object entries are skipped.
func ContextDescriptions(data []byte) ([]string, error) {
	entries, err := parseObject(data)
	if err != nil {
		return nil, err
	}

	descs := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.value.IsObject() {
			continue
		}
		desc := ""
		if d := e.value.Get("description"); d.Type == gjson.String {
			desc = d.Str
		}
		descs = append(descs, desc)
	}
	return descs, nil
}

// BuildContext joins context descriptions with newlines and trims the result.
func BuildContext(data []byte) (string, error) {
	descs, err := ContextDescriptions(data)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(strings.Join(descs, "\n")), nil
}

type entry struct {
	key   string
	value gjson.Result
}

// parseObject returns the members of a JSON object in document order.
// A repeated key keeps its first position and its last value.
func parseObject(data []byte) ([]entry, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("invalid JSON")
	}
	root := gjson.ParseBytes(data)
	if !root.IsObject() {
		return nil, fmt.Errorf("expected a JSON object, got %s", root.Type)
	}

	var entries []entry
	index := make(map[string]int)
	root.ForEach(func(key, value gjson.Result) bool {
		k := key.String()
		if i, ok := index[k]; ok {
			entries[i].value = value
			return true
		}
		index[k] = len(entries)
		entries = append(entries, entry{key: k, value: value})
		return true
	})
	return entries, nil
}
