package core

import (
	"encoding/json"
	"strings"

	"deskcore/pkg/domain"
)

// DragKey is the transfer-data key drag sources write structured payloads
// under. A plain-text fallback of the form "type:id" is written alongside it
// for targets that only read text.
const DragKey = "application/x-deskcore-module"

// TransferData is the key/value bag a drag operation carries between a drag
// source and a drop target.
type TransferData map[string]string

// EncodeDrag writes the payload into the transfer bag under DragKey plus a
// "text/plain" fallback.
func EncodeDrag(payload domain.DragPayload) TransferData {
	raw, err := json.Marshal(payload)
	if err != nil {
		return TransferData{}
	}
	return TransferData{
		DragKey:      string(raw),
		"text/plain": string(payload.Type) + ":" + payload.ID,
	}
}

// DecodeDrag extracts a drag payload from the transfer bag. The structured
// entry is preferred; the text fallback is parsed when it is absent or does
// not decode to a usable payload. Garbage or foreign drags decode to nil
// rather than an error, so targets can ignore them silently.
func DecodeDrag(data TransferData) *domain.DragPayload {
	if raw, ok := data[DragKey]; ok {
		var payload domain.DragPayload
		if err := json.Unmarshal([]byte(raw), &payload); err == nil && payload.Type != "" && payload.ID != "" {
			return &payload
		}
	}
	text, ok := data["text/plain"]
	if !ok {
		return nil
	}
	moduleType, id, found := strings.Cut(text, ":")
	if !found || moduleType == "" || id == "" {
		return nil
	}
	return &domain.DragPayload{Type: domain.ModuleType(moduleType), ID: id}
}
