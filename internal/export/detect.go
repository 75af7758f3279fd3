package export

import (
	"encoding/json"
)

// Decode splits a JSON document into its top-level export records. Anything
// other than a JSON array is a DecodeError.
func Decode(data []byte) ([]json.RawMessage, error) {
	var doc []json.RawMessage
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, &DecodeError{Err: err}
	}
	return doc, nil
}

// Detect classifies a decoded document by the keys of its first record.
func Detect(doc []json.RawMessage) Format {
	if len(doc) == 0 {
		return FormatUnknown
	}

	var keys map[string]json.RawMessage
	if err := json.Unmarshal(doc[0], &keys); err != nil {
		return FormatUnknown
	}

	if hasKeys(keys, "mapping", "create_time") {
		return FormatChatGPT
	}
	if hasKeys(keys, "uuid", "chat_messages") {
		return FormatClaude
	}
	return FormatUnknown
}

// DetectBytes decodes data and classifies it.
func DetectBytes(data []byte) (Format, error) {
	doc, err := Decode(data)
	if err != nil {
		return FormatUnknown, err
	}
	return Detect(doc), nil
}

func hasKeys(m map[string]json.RawMessage, keys ...string) bool {
	for _, k := range keys {
		if _, ok := m[k]; !ok {
			return false
		}
	}
	return true
}
