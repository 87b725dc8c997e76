package extraction

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"
)

const codeFence = "```"

var (
	resultKeys = []string{"message", "addTasks"}
	itemKeys   = []string{"task"}
)

// StripCodeFence removes a surrounding ``` fence (with optional language tag)
// that models like to wrap structured answers in.
func StripCodeFence(raw string) string {
	s := strings.TrimSpace(raw)
	if !strings.HasPrefix(s, codeFence) {
		return s
	}

	s = s[len(codeFence):]
	i := 0
	for i < len(s) && isTagByte(s[i]) {
		i++
	}
	s = s[i:]

	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, codeFence)
	return strings.TrimSpace(s)
}

func isTagByte(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9') || b == '-' || b == '_'
}

// Parse decodes a raw model answer into a Result. The answer is untrusted:
// keys must match exactly (case included) and appear once, and unknown or
// missing fields, nulls, wrong types and trailing data are all rejected with a
// *MalformedResponseError. No partial result is returned.
func Parse(raw string) (*Result, error) {
	body := StripCodeFence(raw)
	if body == "" {
		return nil, malformed("empty response", nil)
	}

	dec := json.NewDecoder(strings.NewReader(body))
	var top json.RawMessage
	if err := dec.Decode(&top); err != nil {
		return nil, malformed("not a valid result object", err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, malformed("unexpected data after result object", err)
	}

	fields, err := decodeObject(top, resultKeys)
	if err != nil {
		return nil, malformed("not a valid result object", err)
	}

	res := &Result{}
	if err := decodeString(fields["message"], &res.Message); err != nil {
		return nil, malformed(`invalid "message"`, err)
	}

	var items []json.RawMessage
	if isNull(fields["addTasks"]) {
		return nil, malformed(`invalid "addTasks"`, errNull)
	}
	if err := json.Unmarshal(fields["addTasks"], &items); err != nil {
		return nil, malformed(`invalid "addTasks"`, err)
	}

	res.AddTasks = make([]Item, 0, len(items))
	for i, rawItem := range items {
		itemFields, err := decodeObject(rawItem, itemKeys)
		if err != nil {
			return nil, malformed(fmt.Sprintf("invalid addTasks[%d]", i), err)
		}
		var item Item
		if err := decodeString(itemFields["task"], &item.Task); err != nil {
			return nil, malformed(fmt.Sprintf(`invalid addTasks[%d] "task"`, i), err)
		}
		res.AddTasks = append(res.AddTasks, item)
	}

	if len(res.AddTasks) == 0 && strings.TrimSpace(res.Message) == "" {
		return nil, malformed("no tasks and no message explaining why", nil)
	}

	return res, nil
}

var errNull = errors.New("value is null")

// decodeObject splits a JSON object into its raw values. The object must
// carry exactly the keys in want, each once.
func decodeObject(raw json.RawMessage, want []string) (map[string]json.RawMessage, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))

	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("expected an object, got %v", tok)
	}

	fields := make(map[string]json.RawMessage, len(want))
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected token %v", tok)
		}
		if _, dup := fields[key]; dup {
			return nil, fmt.Errorf("duplicate key %q", key)
		}
		if !slices.Contains(want, key) {
			return nil, fmt.Errorf("unknown key %q", key)
		}

		var value json.RawMessage
		if err := dec.Decode(&value); err != nil {
			return nil, err
		}
		fields[key] = value
	}
	if _, err := dec.Token(); err != nil {
		return nil, err
	}

	for _, key := range want {
		if _, ok := fields[key]; !ok {
			return nil, fmt.Errorf("missing key %q", key)
		}
	}
	return fields, nil
}

// decodeString rejects null, which json.Unmarshal would silently accept.
func decodeString(raw json.RawMessage, dst *string) error {
	if isNull(raw) {
		return errNull
	}
	return json.Unmarshal(raw, dst)
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}
