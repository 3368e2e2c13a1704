package normalize

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"math"
	"slices"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/roach88/racksim/internal/compute"
	"github.com/roach88/racksim/internal/record"
)

// Normalize converts one raw telemetry document into a canonical record.
//
// The returned record has ID 0 and carries raw verbatim in Raw. Fails with
// an *Error when raw is not valid JSON or not a JSON object.
func Normalize(raw json.RawMessage) (record.Record, error) {
	doc, err := decodeObject(raw)
	if err != nil {
		return record.Record{}, err
	}

	var rec record.Record
	for _, rule := range fields {
		v, ok := rule.resolve(doc)
		switch rule.Kind {
		case kindText:
			s, _ := v.(string)
			if !ok {
				s = rule.Fallback
			}
			if rule.setPlain != nil {
				*rule.setPlain(&rec) = s
			} else if s != "" {
				*rule.setText(&rec) = record.String(s)
			}
		case kindNumber:
			if ok {
				*rule.setNumber(&rec) = record.Float(v.(float64))
			}
		}
	}
	rec.Raw = slices.Clone(raw)
	return rec, nil
}

// OriginalEntityID returns the upstream entity id recorded in the metadata
// section of raw, preferring an explicit original id over the current one.
// Returns "" when raw carries neither or cannot be decoded.
func OriginalEntityID(raw json.RawMessage) string {
	doc, err := decodeObject(raw)
	if err != nil {
		return ""
	}
	v, ok := originalEntityRule.resolve(doc)
	if !ok {
		return ""
	}
	return v.(string)
}

// PayloadFromRaw re-reads the compute inputs from the payload section of raw.
func PayloadFromRaw(raw json.RawMessage) (compute.Payload, error) {
	doc, err := decodeObject(raw)
	if err != nil {
		return compute.Payload{}, err
	}

	values := make(map[string]*float64, len(payloadRules))
	for _, rule := range payloadRules {
		if v, ok := rule.resolve(doc); ok {
			values[rule.Column] = record.Float(v.(float64))
		}
	}
	return compute.Payload{
		ServerWorkloadPercent: values["server_workload_percent"],
		InletTempC:            values["inlet_temp_c"],
		AmbientTempC:          values["ambient_temp_c"],
		ChillerUsagePercent:   values["chiller_usage_percent"],
		AHUUsagePercent:       values["ahu_usage_percent"],
	}, nil
}

// SplitDocuments splits an ingestion input into individual raw documents.
// An object is a batch of one; an array yields its elements verbatim,
// whatever their kind, so each can fail normalization on its own.
func SplitDocuments(data []byte) ([]json.RawMessage, error) {
	trimmed := bytes.TrimSpace(data)
	if !json.Valid(trimmed) {
		return nil, &Error{Kind: KindMalformed, Err: errors.New("input is not valid JSON")}
	}
	switch trimmed[0] {
	case '{':
		return []json.RawMessage{slices.Clone(trimmed)}, nil
	case '[':
		var docs []json.RawMessage
		if err := json.Unmarshal(trimmed, &docs); err != nil {
			return nil, &Error{Kind: KindMalformed, Err: err}
		}
		return docs, nil
	default:
		return nil, ErrUnsupportedBatch
	}
}

// resolve returns the first usable value for the rule: the first section key
// holding a non-empty object, then the first alias in it with a usable value.
func (r fieldRule) resolve(doc map[string]any) (any, bool) {
	var section map[string]any
	for _, key := range r.Sections {
		if obj, ok := doc[key].(map[string]any); ok && len(obj) > 0 {
			section = obj
			break
		}
	}
	if section == nil {
		return nil, false
	}

	for _, alias := range r.Aliases {
		raw, present := section[alias]
		if !present {
			continue
		}
		switch r.Kind {
		case kindText:
			if s, ok := textValue(raw); ok {
				return s, true
			}
		case kindNumber:
			if f, ok := numberValue(raw); ok {
				return f, true
			}
		}
	}
	return nil, false
}

func textValue(v any) (string, bool) {
	var s string
	switch val := v.(type) {
	case string:
		s = val
	case json.Number:
		s = val.String()
	default:
		return "", false
	}
	s = norm.NFC.String(strings.TrimSpace(s))
	return s, s != ""
}

func numberValue(v any) (float64, bool) {
	var (
		f   float64
		err error
	)
	switch val := v.(type) {
	case json.Number:
		f, err = val.Float64()
	case string:
		f, err = strconv.ParseFloat(strings.TrimSpace(val), 64)
	default:
		return 0, false
	}
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// decodeObject decodes raw as a single JSON object, keeping numbers exact.
func decodeObject(raw json.RawMessage) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, &Error{Kind: KindMalformed, Err: err}
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, &Error{Kind: KindMalformed, Err: errors.New("trailing data after document")}
	}

	obj, ok := v.(map[string]any)
	if !ok {
		return nil, &Error{Kind: KindInvalidInput, Got: jsonKind(v)}
	}
	return obj, nil
}

func jsonKind(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case []any:
		return "array"
	case string:
		return "string"
	case json.Number:
		return "number"
	case bool:
		return "boolean"
	default:
		return "unknown"
	}
}
