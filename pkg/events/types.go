package events

import "encoding/json"

// Event name constants
const (
	// Reading carries every published reading. Its payload is the same
	// JSON document that goes to the MQTT broker.
	Reading = "reading"
)

// Event is a generic SSE event from daemon.
type Event struct {
	Name string          // SSE event name
	Data json.RawMessage // Raw JSON payload
}

// DecodeAs decodes the event payload into the caller-specified generic type T.
// It ignores the event name and simply unmarshals Data into T. If Data is empty,
// it returns the zero value of T with a nil error.
//
// Example:
//
//	payload, err := events.DecodeAs[publish.Payload](ev)
//	if err != nil { /* handle */ }
//	fmt.Println(payload.Display, payload.Percent)
func DecodeAs[T any](e Event) (T, error) {
	var zero T
	if len(e.Data) == 0 {
		return zero, nil
	}
	var v T
	if err := json.Unmarshal(e.Data, &v); err != nil {
		return zero, err
	}
	return v, nil
}
