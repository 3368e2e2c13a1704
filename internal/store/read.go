package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/roach88/racksim/internal/record"
)

// recordColumns is the column list scanned by scanRecord, in order.
const recordColumns = `id, entity_type, entity_id, timestamp_utc,
	server_workload_percent, inlet_temp_c, ambient_temp_c,
	chiller_usage_percent, ahu_usage_percent, outlet_temp_c,
	total_energy_cost_usd, temp_deviation_c, cooling_strategy,
	calculated_server_power_watts, cooling_unit_power_watts, calculated_pue,
	raw_json, created_at`

const selectionColumns = `id, selected_row_id, selected_entity_id, original_entity_id,
	rack_id, selection_ts, seed, run_id`

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// ReadRecord retrieves a single record by id.
// Returns ErrNotFound if no record has the id.
func (s *Store) ReadRecord(ctx context.Context, id int64) (record.Record, error) {
	if err := s.usable(); err != nil {
		return record.Record{}, err
	}
	row := s.db.QueryRowContext(ctx, `SELECT `+recordColumns+` FROM telemetry WHERE id = ?`, id)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return record.Record{}, fmt.Errorf("read record %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return record.Record{}, fmt.Errorf("read record %d: %w", id, err)
	}
	return rec, nil
}

// LatestRecord returns the most recent record by timestamp, optionally
// limited to one entity type ("" for any). Equal timestamps resolve to the
// highest id; records without a timestamp sort oldest.
// Returns ErrNotFound if there is no matching record.
func (s *Store) LatestRecord(ctx context.Context, entityType string) (record.Record, error) {
	if err := s.usable(); err != nil {
		return record.Record{}, err
	}

	var row *sql.Row
	if entityType != "" {
		row = s.db.QueryRowContext(ctx, `
			SELECT `+recordColumns+`
			FROM telemetry
			WHERE entity_type = ?
			ORDER BY timestamp_utc DESC, id DESC
			LIMIT 1
		`, entityType)
	} else {
		row = s.db.QueryRowContext(ctx, `
			SELECT `+recordColumns+`
			FROM telemetry
			ORDER BY timestamp_utc DESC, id DESC
			LIMIT 1
		`)
	}

	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return record.Record{}, fmt.Errorf("latest record: %w", ErrNotFound)
	}
	if err != nil {
		return record.Record{}, fmt.Errorf("latest record: %w", err)
	}
	return rec, nil
}

// LatestPerGroup returns, for every entity id of the given entity type, the
// record with the newest timestamp (ties: highest id). Results are ordered by
// entity id. Returns an empty slice (not nil) when nothing matches.
func (s *Store) LatestPerGroup(ctx context.Context, entityType string) ([]record.Record, error) {
	if err := s.usable(); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+recordColumns+`
		FROM (
			SELECT `+recordColumns+`,
				ROW_NUMBER() OVER (
					PARTITION BY entity_id
					ORDER BY timestamp_utc DESC, id DESC
				) AS rn
			FROM telemetry
			WHERE entity_type = ?
		)
		WHERE rn = 1
		ORDER BY entity_id COLLATE BINARY ASC
	`, entityType)
	if err != nil {
		return nil, fmt.Errorf("latest per group: %w", err)
	}
	defer rows.Close()

	return collectRecords(rows, "latest per group")
}

// Groups returns the distinct group (entity) ids, optionally limited to one
// entity type ("" for any), in byte order.
func (s *Store) Groups(ctx context.Context, entityType string) ([]string, error) {
	if err := s.usable(); err != nil {
		return nil, err
	}

	query := `SELECT DISTINCT entity_id FROM telemetry ORDER BY entity_id COLLATE BINARY ASC`
	args := []any{}
	if entityType != "" {
		query = `SELECT DISTINCT entity_id FROM telemetry WHERE entity_type = ? ORDER BY entity_id COLLATE BINARY ASC`
		args = append(args, entityType)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query groups: %w", err)
	}
	defer rows.Close()

	groups := []string{}
	for rows.Next() {
		var g string
		if err := rows.Scan(&g); err != nil {
			return nil, fmt.Errorf("scan group: %w", err)
		}
		groups = append(groups, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate groups: %w", err)
	}
	return groups, nil
}

// ReadSelections returns selection rows ordered by id, optionally limited to
// one group ("" for all).
func (s *Store) ReadSelections(ctx context.Context, groupID string) ([]record.Selection, error) {
	if err := s.usable(); err != nil {
		return nil, err
	}

	query := `SELECT ` + selectionColumns + ` FROM selection_log ORDER BY id ASC`
	args := []any{}
	if groupID != "" {
		query = `SELECT ` + selectionColumns + ` FROM selection_log WHERE rack_id = ? ORDER BY id ASC`
		args = append(args, groupID)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query selections: %w", err)
	}
	defer rows.Close()

	selections := []record.Selection{}
	for rows.Next() {
		sel, err := scanSelection(rows)
		if err != nil {
			return nil, err
		}
		selections = append(selections, sel)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate selections: %w", err)
	}
	return selections, nil
}

// UnselectedCandidates returns the records of a group that no selection row
// references, ordered by id. A non-empty entityType limits the group to
// records of that type. The anti-join runs against the transaction's view,
// so a row claimed by a committed run is never returned.
func (t *Tx) UnselectedCandidates(ctx context.Context, entityType, groupID string) ([]record.Record, error) {
	rows, err := t.tx.QueryContext(ctx, `
		SELECT `+prefixed("t", recordColumns)+`
		FROM telemetry t
		LEFT JOIN selection_log s ON s.selected_row_id = t.id
		WHERE t.entity_id = ?
		  AND (? = '' OR t.entity_type = ?)
		  AND s.id IS NULL
		ORDER BY t.id ASC
	`, groupID, entityType, entityType)
	if err != nil {
		return nil, fmt.Errorf("query candidates for %s: %w", groupID, err)
	}
	defer rows.Close()

	return collectRecords(rows, "candidates")
}

func collectRecords(rows *sql.Rows, op string) ([]record.Record, error) {
	records := []record.Record{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: iterate: %w", op, err)
	}
	return records, nil
}

// scanRecord scans one row selected with recordColumns.
func scanRecord(row rowScanner) (record.Record, error) {
	var (
		rec       record.Record
		timestamp sql.NullString
		strategy  sql.NullString
		raw       sql.NullString
		nums      [12]sql.NullFloat64
	)

	err := row.Scan(
		&rec.ID, &rec.EntityType, &rec.EntityID, &timestamp,
		&nums[0], &nums[1], &nums[2],
		&nums[3], &nums[4], &nums[5],
		&nums[6], &nums[7], &strategy,
		&nums[8], &nums[9], &nums[10],
		&raw, &rec.CreatedAt,
	)
	if err != nil {
		return record.Record{}, err
	}

	rec.Timestamp = nullString(timestamp)
	rec.Inputs = record.Inputs{
		ServerWorkloadPercent: nullFloat(nums[0]),
		InletTempC:            nullFloat(nums[1]),
		AmbientTempC:          nullFloat(nums[2]),
	}
	rec.Results = record.Results{
		ChillerUsagePercent:   nullFloat(nums[3]),
		AHUUsagePercent:       nullFloat(nums[4]),
		OutletTempC:           nullFloat(nums[5]),
		TotalEnergyCostUSD:    nullFloat(nums[6]),
		TempDeviationC:        nullFloat(nums[7]),
		CoolingStrategy:       nullString(strategy),
		ServerPowerWatts:      nullFloat(nums[8]),
		CoolingUnitPowerWatts: nullFloat(nums[9]),
		PUE:                   nullFloat(nums[10]),
	}
	if raw.Valid {
		rec.Raw = []byte(raw.String)
	}
	return rec, nil
}

func scanSelection(row rowScanner) (record.Selection, error) {
	var (
		sel         record.Selection
		displayName sql.NullString
		originalID  sql.NullString
		groupID     sql.NullString
		selectedAt  sql.NullString
		seed        sql.NullInt64
	)
	if err := row.Scan(
		&sel.ID, &sel.RecordID, &displayName, &originalID,
		&groupID, &selectedAt, &seed, &sel.RunID,
	); err != nil {
		return record.Selection{}, fmt.Errorf("scan selection: %w", err)
	}
	sel.DisplayName = displayName.String
	sel.OriginalEntityID = originalID.String
	sel.GroupID = groupID.String
	sel.SelectedAt = selectedAt.String
	if seed.Valid {
		sel.Seed = record.Int(seed.Int64)
	}
	return sel, nil
}

func nullFloat(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	return record.Float(v.Float64)
}

func nullString(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	return record.String(v.String)
}

// prefixed qualifies every column in a comma-separated list with alias.
func prefixed(alias, columns string) string {
	parts := strings.Split(columns, ",")
	for i, p := range parts {
		parts[i] = alias + "." + strings.TrimSpace(p)
	}
	return strings.Join(parts, ", ")
}
