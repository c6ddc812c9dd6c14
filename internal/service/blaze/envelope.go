package blaze

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"SignalPull/internal/domain/models"
)

// EnvelopeKind tags which response shape the feed used.
type EnvelopeKind int

const (
	KindUnrecognized EnvelopeKind = iota
	KindArray                     // [ ... ]
	KindResults                   // { "results": [ ... ] }
	KindData                      // { "data": [ ... ] }
)

func (k EnvelopeKind) String() string {
	switch k {
	case KindArray:
		return "array"
	case KindResults:
		return "results"
	case KindData:
		return "data"
	default:
		return "unrecognized"
	}
}

// Envelope is the decoded response: its shape and the raw items it carried.
type Envelope struct {
	Kind  EnvelopeKind
	Items []json.RawMessage
}

// RawResult is one feed item as sent on the wire.
type RawResult struct {
	ID        FlexID `json:"id"`
	Color     *int   `json:"color"`
	Roll      *int   `json:"roll"`
	CreatedAt string `json:"created_at"`
}

// FlexID accepts both string and numeric ids.
type FlexID string

func (f *FlexID) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = FlexID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("id: %w", err)
	}
	if _, err := strconv.ParseFloat(n.String(), 64); err != nil {
		return fmt.Errorf("id: %w", err)
	}
	*f = FlexID(n.String())
	return nil
}

type objectEnvelope struct {
	Results json.RawMessage `json:"results"`
	Data    json.RawMessage `json:"data"`
}

// DecodeEnvelope decodes body into one of the known shapes. Priority is bare
// array, then results, then data; the first non-empty one wins. A known shape
// with an empty array decodes to an empty envelope of that kind. Anything else
// is ErrFeedMalformed.
func DecodeEnvelope(body []byte) (Envelope, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return Envelope{}, fmt.Errorf("%w: empty body", models.ErrFeedMalformed)
	}

	var candidates []Envelope
	switch body[0] {
	case '[':
		items, ok := asArray(body)
		if !ok {
			return Envelope{}, fmt.Errorf("%w: bad array", models.ErrFeedMalformed)
		}
		candidates = append(candidates, Envelope{Kind: KindArray, Items: items})
	case '{':
		var obj objectEnvelope
		if err := json.Unmarshal(body, &obj); err != nil {
			return Envelope{}, fmt.Errorf("%w: %v", models.ErrFeedMalformed, err)
		}
		if items, ok := asArray(obj.Results); ok {
			candidates = append(candidates, Envelope{Kind: KindResults, Items: items})
		}
		if items, ok := asArray(obj.Data); ok {
			candidates = append(candidates, Envelope{Kind: KindData, Items: items})
		}
	}

	if len(candidates) == 0 {
		return Envelope{}, fmt.Errorf("%w: unrecognized shape", models.ErrFeedMalformed)
	}
	for _, c := range candidates {
		if len(c.Items) > 0 {
			return c, nil
		}
	}
	return Envelope{Kind: candidates[0].Kind}, nil
}

func asArray(raw json.RawMessage) ([]json.RawMessage, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '[' {
		return nil, false
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, false
	}
	return items, true
}

// DecodeResult decodes one raw item.
func DecodeResult(raw json.RawMessage) (RawResult, error) {
	var r RawResult
	if err := json.Unmarshal(raw, &r); err != nil {
		return RawResult{}, err
	}
	return r, nil
}
