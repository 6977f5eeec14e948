package registry

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// ID is a remote identifier or version that the API encodes either as a string or a number.
type ID string

// UnmarshalJSON accepts strings, numbers and null.
func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)

	switch {
	case bytes.Equal(data, []byte("null")):
		*id = ""
	case len(data) > 0 && data[0] == '"':
		var text string
		if err := json.Unmarshal(data, &text); err != nil {
			return err
		}

		*id = ID(text)
	default:
		var number json.Number
		if err := json.Unmarshal(data, &number); err != nil {
			return fmt.Errorf("decode id: %w", err)
		}

		*id = ID(number.String())
	}

	return nil
}

// String implements fmt.Stringer.
func (id ID) String() string {
	return string(id)
}

// Model is one entry of the model registry.
type Model struct {
	ID           ID     `json:"id"`
	ModelName    string `json:"model_name"`
	ModelVersion ID     `json:"model_version"`
}

// ModelList is the answer of the model list call.
type ModelList struct {
	Models []Model `json:"data"`
	Total  int     `json:"total,omitempty"`
}

// Empty reports whether no model matched.
func (l *ModelList) Empty() bool {
	return l == nil || len(l.Models) == 0
}

// First returns the first listed model.
func (l *ModelList) First() (Model, bool) {
	if l.Empty() {
		return Model{}, false
	}

	return l.Models[0], true
}
