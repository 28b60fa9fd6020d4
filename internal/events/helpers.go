package events

import "encoding/json"

// MissionID extracts the mission id carried by the payload, or "" when
// the event has no payload. Every payload shape serializes its mission
// id under the same key, so a JSON probe avoids a 27-arm type switch.
func (e *Event) MissionID() string {
	if e.Payload == nil {
		return ""
	}
	raw, err := json.Marshal(e.Payload)
	if err != nil {
		return ""
	}
	var probe struct {
		MissionID string `json:"mission_id"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return ""
	}
	return probe.MissionID
}
