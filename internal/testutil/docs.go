package testutil

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// RackDocument returns a raw telemetry document in the preferred shape
// (meta_data section, camelCase metadata keys) for one rack reading.
func RackDocument(groupID, timestamp string, workload, inlet float64) json.RawMessage {
	return json.RawMessage(fmt.Sprintf(
		`{"meta_data":{"entityType":"rack","entityId":%s,"timestamp":%s},`+
			`"payload":{"server_workload_percent":%s,"inlet_temp_c":%s,"ambient_temp_c":%s},`+
			`"results":{"chiller_usage_percent":40,"ahu_usage_percent":50}}`,
		strconv.Quote(groupID), strconv.Quote(timestamp),
		num(workload), num(inlet), num(inlet-3),
	))
}

// LegacyDocument returns a rack reading in the older producer shape
// (metadata section, snake_case keys, numbers sent as strings).
func LegacyDocument(groupID, timestamp string, workload, inlet float64) json.RawMessage {
	return json.RawMessage(fmt.Sprintf(
		`{"metadata":{"entity_type":"rack","entity_id":%s,"timestamp_utc":%s,"original_entity_id":%s},`+
			`"payload":{"server_workload_percent":%s,"inlet_temp_c":%s}}`,
		strconv.Quote(groupID), strconv.Quote(timestamp), strconv.Quote("orig-"+groupID),
		strconv.Quote(num(workload)), strconv.Quote(num(inlet)),
	))
}

// Batch joins raw documents into a JSON array.
func Batch(docs ...json.RawMessage) []byte {
	data, err := json.Marshal(docs)
	if err != nil {
		panic(fmt.Sprintf("testutil: batch: %v", err))
	}
	return data
}

func num(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
