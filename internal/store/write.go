package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/roach88/racksim/internal/record"
)

// Tx is a write transaction handed to WithinTx callbacks. Its methods must
// not be used after the callback returns.
type Tx struct {
	tx *sql.Tx
}

// InsertRecord appends a canonical record and returns its assigned id.
// The record's ID and CreatedAt are ignored; the store assigns both.
func (s *Store) InsertRecord(ctx context.Context, rec record.Record) (int64, error) {
	var id int64
	err := s.WithinTx(ctx, func(tx *Tx) error {
		var err error
		id, err = tx.InsertRecord(ctx, rec)
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("insert record: %w", err)
	}
	return id, nil
}

// UpdateResults overwrites the result fields of record id. See Tx.UpdateResults.
func (s *Store) UpdateResults(ctx context.Context, id int64, res record.Results) error {
	err := s.WithinTx(ctx, func(tx *Tx) error {
		return tx.UpdateResults(ctx, id, res)
	})
	if err != nil {
		return fmt.Errorf("update results: %w", err)
	}
	return nil
}

// InsertRecord appends a canonical record inside the transaction.
func (t *Tx) InsertRecord(ctx context.Context, rec record.Record) (int64, error) {
	var raw any
	if len(rec.Raw) > 0 {
		raw = string(rec.Raw)
	}

	result, err := t.tx.ExecContext(ctx, `
		INSERT INTO telemetry
		(entity_type, entity_id, timestamp_utc,
		 server_workload_percent, inlet_temp_c, ambient_temp_c,
		 chiller_usage_percent, ahu_usage_percent, outlet_temp_c,
		 total_energy_cost_usd, temp_deviation_c, cooling_strategy,
		 calculated_server_power_watts, cooling_unit_power_watts, calculated_pue,
		 raw_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		rec.EntityType,
		rec.EntityID,
		rec.Timestamp,
		rec.Inputs.ServerWorkloadPercent,
		rec.Inputs.InletTempC,
		rec.Inputs.AmbientTempC,
		rec.Results.ChillerUsagePercent,
		rec.Results.AHUUsagePercent,
		rec.Results.OutletTempC,
		rec.Results.TotalEnergyCostUSD,
		rec.Results.TempDeviationC,
		rec.Results.CoolingStrategy,
		rec.Results.ServerPowerWatts,
		rec.Results.CoolingUnitPowerWatts,
		rec.Results.PUE,
		raw,
	)
	if err != nil {
		return 0, fmt.Errorf("insert telemetry: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("insert telemetry: last insert id: %w", err)
	}
	return id, nil
}

// UpdateResults overwrites the result fields of record id inside the
// transaction and stores res as canonical JSON in results_json.
//
// The seven computed columns are always written, nil meaning NULL. Chiller
// and AHU usage are inputs to the compute pass; a nil value there keeps the
// stored one and leaves the key out of results_json. Returns ErrNotFound if
// no record has the id.
func (t *Tx) UpdateResults(ctx context.Context, id int64, res record.Results) error {
	fields := res.Map()
	if res.ChillerUsagePercent == nil {
		delete(fields, "chiller_usage_percent")
	}
	if res.AHUUsagePercent == nil {
		delete(fields, "ahu_usage_percent")
	}
	resultsJSON, err := record.MarshalCanonical(fields)
	if err != nil {
		return fmt.Errorf("marshal results: %w", err)
	}

	result, err := t.tx.ExecContext(ctx, `
		UPDATE telemetry SET
			chiller_usage_percent = COALESCE(?, chiller_usage_percent),
			ahu_usage_percent = COALESCE(?, ahu_usage_percent),
			outlet_temp_c = ?,
			total_energy_cost_usd = ?,
			temp_deviation_c = ?,
			cooling_strategy = ?,
			calculated_server_power_watts = ?,
			cooling_unit_power_watts = ?,
			calculated_pue = ?,
			results_json = ?
		WHERE id = ?
	`,
		res.ChillerUsagePercent,
		res.AHUUsagePercent,
		res.OutletTempC,
		res.TotalEnergyCostUSD,
		res.TempDeviationC,
		res.CoolingStrategy,
		res.ServerPowerWatts,
		res.CoolingUnitPowerWatts,
		res.PUE,
		string(resultsJSON),
		id,
	)
	if err != nil {
		return fmt.Errorf("update telemetry %d: %w", id, err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update telemetry %d: rows affected: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("update telemetry %d: %w", id, ErrNotFound)
	}
	return nil
}

// InsertSelection records that sel.RecordID was chosen and returns the
// selection id. An empty SelectedAt is stamped with the current UTC time.
func (t *Tx) InsertSelection(ctx context.Context, sel record.Selection) (int64, error) {
	if sel.SelectedAt == "" {
		sel.SelectedAt = time.Now().UTC().Format(record.TimeLayout)
	}

	result, err := t.tx.ExecContext(ctx, `
		INSERT INTO selection_log
		(selected_row_id, selected_entity_id, original_entity_id, rack_id, selection_ts, seed, run_id)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		sel.RecordID,
		sel.DisplayName,
		sel.OriginalEntityID,
		sel.GroupID,
		sel.SelectedAt,
		sel.Seed,
		sel.RunID,
	)
	if err != nil {
		return 0, fmt.Errorf("insert selection for row %d: %w", sel.RecordID, err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("insert selection: last insert id: %w", err)
	}
	return id, nil
}
