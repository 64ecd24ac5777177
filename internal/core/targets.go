package core

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

const targetsField = "targets"

// TargetList is a parsed target array whose entries are decoded lazily, one
// per fan-out step, so a bad entry aborts the loop at that index only.
type TargetList struct {
	entries []json.RawMessage
}

// ParseTargets decodes the outer array of a serialized target list.
func ParseTargets(raw string) (*TargetList, error) {
	var entries []json.RawMessage
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		return nil, MalformedPayload("", targetsField, err)
	}
	return &TargetList{entries: entries}, nil
}

// Len returns the number of entries.
func (l *TargetList) Len() int {
	return len(l.entries)
}

// At decodes entry i. Accepted shapes: "bob", {"userId":"bob"}, {"target_<i>":"bob"}.
func (l *TargetList) At(i int) (string, error) {
	if i < 0 || i >= len(l.entries) {
		return "", MalformedPayload("", targetsField, fmt.Errorf("index %d out of range", i))
	}
	entry := bytes.TrimSpace(l.entries[i])
	if len(entry) == 0 {
		return "", entryError(i, errors.New("empty entry"))
	}

	var raw json.RawMessage
	switch entry[0] {
	case '"':
		raw = entry
	case '{':
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(entry, &obj); err != nil {
			return "", entryError(i, err)
		}
		var ok bool
		if raw, ok = obj["userId"]; !ok {
			if raw, ok = obj[fmt.Sprintf("target_%d", i)]; !ok {
				return "", entryError(i, fmt.Errorf("neither userId nor target_%d present", i))
			}
		}
	default:
		return "", entryError(i, errors.New("entry must be a string or an object"))
	}

	var id string
	if err := json.Unmarshal(raw, &id); err != nil {
		return "", entryError(i, err)
	}
	if id == "" {
		return "", entryError(i, errors.New("empty user id"))
	}
	return id, nil
}

func entryError(i int, cause error) *CoreError {
	return MalformedPayload("", fmt.Sprintf("%s[%d]", targetsField, i), cause)
}
