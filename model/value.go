package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
)

type ValueKind int

const (
	TextValue ValueKind = iota
	NumberValue
	ChoiceValue
)

// Value is a single answer. Values are comparable, so they can be used as map keys.
type Value struct {
	Kind   ValueKind
	Text   string
	Number float64
}

func Text(s string) Value {
	return Value{Kind: TextValue, Text: s}
}

func Number(f float64) Value {
	return Value{Kind: NumberValue, Number: f}
}

// Choice holds the id of a selected option.
func Choice(id string) Value {
	return Value{Kind: ChoiceValue, Text: id}
}

func (v Value) String() string {
	if v.Kind == NumberValue {
		return strconv.FormatFloat(v.Number, 'f', -1, 64)
	}
	return v.Text
}

// Interface returns the value as a plain string or float64, for writers that
// want to keep numeric cells numeric.
func (v Value) Interface() any {
	if v.Kind == NumberValue {
		return v.Number
	}
	return v.Text
}

type choiceJSON struct {
	Choice string `json:"choice"`
}

func (v Value) MarshalJSON() ([]byte, error) {
	switch v.Kind {
	case NumberValue:
		return json.Marshal(v.Number)
	case ChoiceValue:
		return json.Marshal(choiceJSON{v.Text})
	default:
		return json.Marshal(v.Text)
	}
}

func (v *Value) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return fmt.Errorf("empty answer value")
	}

	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = Text(s)
	case '{':
		var c choiceJSON
		if err := json.Unmarshal(data, &c); err != nil {
			return err
		}
		*v = Choice(c.Choice)
	case 'n':
		*v = Text("")
	case 't', 'f':
		var b bool
		if err := json.Unmarshal(data, &b); err != nil {
			return err
		}
		*v = Text(strconv.FormatBool(b))
	default:
		var f float64
		if err := json.Unmarshal(data, &f); err != nil {
			return fmt.Errorf("unsupported answer value %s", data)
		}
		*v = Number(f)
	}
	return nil
}

// Answers maps form field names to the posted values. The set of fields
// depends on the form that produced it.
type Answers map[string]Value

// Fields returns the field names in lexical order.
func (a Answers) Fields() []string {
	names := make([]string, 0, len(a))
	for name := range a {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (a Answers) Get(field string) (Value, bool) {
	v, ok := a[field]
	return v, ok
}

func (a Answers) Clone() Answers {
	if a == nil {
		return nil
	}
	c := make(Answers, len(a))
	for k, v := range a {
		c[k] = v
	}
	return c
}
