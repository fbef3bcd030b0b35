package output

import (
	"encoding/json"
)

// JSONFormatter renders session listings as JSON.
type JSONFormatter struct {
	Indent bool
}

// FormatSessions renders a session listing as JSON.
func (f *JSONFormatter) FormatSessions(list SessionList) (string, error) {
	var (
		data []byte
		err  error
	)

	if f.Indent {
		data, err = json.MarshalIndent(list, "", "  ")
	} else {
		data, err = json.Marshal(list)
	}
	if err != nil {
		return "", err
	}

	return string(data), nil
}
