package subscription

import (
	"encoding/json"
	"fmt"

	"market-pulse/src/helpers"
	"market-pulse/src/models"
)

// -----------------------------------------------------------------------------

// decodeAck turns a raw acknowledgment into its data payload or a TransportAckError
func decodeAck(event string, payload json.RawMessage, err error) (json.RawMessage, error) {
	if err != nil {
		return nil, helpers.NewTransportAckError(event, fmt.Sprintf("%s failed", event), err)
	}

	var ack models.MAck
	if err := json.Unmarshal(payload, &ack); err != nil {
		return nil, helpers.NewTransportAckError(event, fmt.Sprintf("%s returned an unreadable ack", event), err)
	}
	if ack.Status != models.AckStatusOK {
		msg := ack.Message
		if msg == "" {
			msg = fmt.Sprintf("%s returned status '%s'", event, ack.Status)
		}
		return nil, helpers.NewTransportAckError(event, msg, nil)
	}
	return ack.Data, nil
}

// -----------------------------------------------------------------------------

// decodeEach decodes a JSON array element by element; unreadable elements are
// skipped instead of failing the whole array. skipped counts them.
func decodeEach[T any](payload json.RawMessage) (items []T, skipped int, err error) {
	if len(payload) == 0 || string(payload) == "null" {
		return nil, 0, nil
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, 0, helpers.NewMalformedDataError("expected a JSON array", err)
	}

	items = make([]T, 0, len(raw))
	for _, r := range raw {
		var item T
		if err := json.Unmarshal(r, &item); err != nil {
			skipped++
			continue
		}
		items = append(items, item)
	}
	return items, skipped, nil
}
