package allocation

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PgSlotRepository is the Postgres-backed SlotRepository. The engine runs
// against it unchanged; backend selection is a wiring concern.
type PgSlotRepository struct {
	pool *pgxpool.Pool
}

func NewPgSlotRepository(pool *pgxpool.Pool) *PgSlotRepository {
	return &PgSlotRepository{pool: pool}
}

const slotColumns = `id, doctor_id, doctor_name, date, start_time, end_time,
	max_capacity, current_capacity, emergency_buffer, delay_minutes, is_active,
	created_at, updated_at`

func scanSlot(row pgx.Row) (*Slot, error) {
	var s Slot
	err := row.Scan(
		&s.ID,
		&s.DoctorID,
		&s.DoctorName,
		&s.Date,
		&s.StartTime,
		&s.EndTime,
		&s.MaxCapacity,
		&s.CurrentCapacity,
		&s.EmergencyBuffer,
		&s.DelayMinutes,
		&s.IsActive,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSlotNotFound
		}
		return nil, err
	}
	return &s, nil
}

func (r *PgSlotRepository) Add(ctx context.Context, slot *Slot) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO slots (id, doctor_id, doctor_name, date, start_time, end_time,
			max_capacity, current_capacity, emergency_buffer, delay_minutes, is_active,
			created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`, slot.ID, slot.DoctorID, slot.DoctorName, slot.Date, slot.StartTime, slot.EndTime,
		slot.MaxCapacity, slot.CurrentCapacity, slot.EmergencyBuffer, slot.DelayMinutes,
		slot.IsActive, slot.CreatedAt, slot.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert slot: %w", err)
	}
	return nil
}

func (r *PgSlotRepository) Get(ctx context.Context, id uuid.UUID) (*Slot, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+slotColumns+`
		FROM slots
		WHERE id = $1
	`, id)
	return scanSlot(row)
}

func (r *PgSlotRepository) Update(ctx context.Context, slot *Slot) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE slots
		SET current_capacity = $2,
		    delay_minutes = $3,
		    is_active = $4,
		    updated_at = $5
		WHERE id = $1
	`, slot.ID, slot.CurrentCapacity, slot.DelayMinutes, slot.IsActive, slot.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update slot: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrSlotNotFound
	}
	return nil
}

func (r *PgSlotRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM slots WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete slot: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrSlotNotFound
	}
	return nil
}

func (r *PgSlotRepository) ByProviderAndDate(ctx context.Context, doctorID, date string) ([]*Slot, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+slotColumns+`
		FROM slots
		WHERE doctor_id = $1
		  AND ($2 = '' OR date = $2)
		ORDER BY start_time ASC
	`, doctorID, date)
	if err != nil {
		return nil, err
	}
	return collectSlots(rows)
}

func (r *PgSlotRepository) ByDate(ctx context.Context, date string) ([]*Slot, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+slotColumns+`
		FROM slots
		WHERE date = $1
		ORDER BY start_time ASC
	`, date)
	if err != nil {
		return nil, err
	}
	return collectSlots(rows)
}

func (r *PgSlotRepository) Active(ctx context.Context) ([]*Slot, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+slotColumns+`
		FROM slots
		WHERE is_active
		ORDER BY date ASC, start_time ASC
	`)
	if err != nil {
		return nil, err
	}
	return collectSlots(rows)
}

func (r *PgSlotRepository) All(ctx context.Context) ([]*Slot, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+slotColumns+`
		FROM slots
		ORDER BY date ASC, start_time ASC
	`)
	if err != nil {
		return nil, err
	}
	return collectSlots(rows)
}

func collectSlots(rows pgx.Rows) ([]*Slot, error) {
	defer rows.Close()

	var result []*Slot
	for rows.Next() {
		s, err := scanSlot(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// PgTokenRepository is the Postgres-backed TokenRepository.
type PgTokenRepository struct {
	pool *pgxpool.Pool
}

func NewPgTokenRepository(pool *pgxpool.Pool) *PgTokenRepository {
	return &PgTokenRepository{pool: pool}
}

const tokenColumns = `id, doctor_id, slot_id, patient_id, patient_name, phone_number,
	token_type, priority, token_number, estimated_time, state, notes,
	created_at, updated_at, checked_in_at, consulted_at, cancelled_at`

func scanToken(row pgx.Row) (*Token, error) {
	var t Token
	err := row.Scan(
		&t.ID,
		&t.DoctorID,
		&t.SlotID,
		&t.PatientID,
		&t.PatientName,
		&t.PhoneNumber,
		&t.Type,
		&t.Priority,
		&t.TokenNumber,
		&t.EstimatedTime,
		&t.State,
		&t.Notes,
		&t.CreatedAt,
		&t.UpdatedAt,
		&t.CheckedInAt,
		&t.ConsultedAt,
		&t.CancelledAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTokenNotFound
		}
		return nil, err
	}
	return &t, nil
}

func (r *PgTokenRepository) Add(ctx context.Context, token *Token) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO tokens (id, doctor_id, slot_id, patient_id, patient_name, phone_number,
			token_type, priority, token_number, estimated_time, state, notes,
			created_at, updated_at, checked_in_at, consulted_at, cancelled_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
	`, token.ID, token.DoctorID, token.SlotID, token.PatientID, token.PatientName,
		token.PhoneNumber, token.Type, token.Priority, token.TokenNumber,
		token.EstimatedTime, token.State, token.Notes, token.CreatedAt, token.UpdatedAt,
		token.CheckedInAt, token.ConsultedAt, token.CancelledAt)
	if err != nil {
		return fmt.Errorf("insert token: %w", err)
	}
	return nil
}

func (r *PgTokenRepository) Get(ctx context.Context, id uuid.UUID) (*Token, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+tokenColumns+`
		FROM tokens
		WHERE id = $1
	`, id)
	return scanToken(row)
}

func (r *PgTokenRepository) Update(ctx context.Context, token *Token) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE tokens
		SET slot_id = $2,
		    token_number = $3,
		    estimated_time = $4,
		    state = $5,
		    notes = $6,
		    updated_at = $7,
		    checked_in_at = $8,
		    consulted_at = $9,
		    cancelled_at = $10
		WHERE id = $1
	`, token.ID, token.SlotID, token.TokenNumber, token.EstimatedTime, token.State,
		token.Notes, token.UpdatedAt, token.CheckedInAt, token.ConsultedAt, token.CancelledAt)
	if err != nil {
		return fmt.Errorf("update token: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrTokenNotFound
	}
	return nil
}

func (r *PgTokenRepository) BySlot(ctx context.Context, slotID uuid.UUID) ([]*Token, error) {
	return r.query(ctx, `slot_id = $1`, slotID)
}

func (r *PgTokenRepository) ByProvider(ctx context.Context, doctorID string) ([]*Token, error) {
	return r.query(ctx, `doctor_id = $1`, doctorID)
}

func (r *PgTokenRepository) ByPatient(ctx context.Context, patientID string) ([]*Token, error) {
	return r.query(ctx, `patient_id = $1`, patientID)
}

func (r *PgTokenRepository) ByState(ctx context.Context, state TokenState) ([]*Token, error) {
	return r.query(ctx, `state = $1`, state)
}

func (r *PgTokenRepository) ByType(ctx context.Context, tokenType TokenType) ([]*Token, error) {
	return r.query(ctx, `token_type = $1`, tokenType)
}

func (r *PgTokenRepository) All(ctx context.Context) ([]*Token, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+tokenColumns+`
		FROM tokens
		ORDER BY created_at ASC
	`)
	if err != nil {
		return nil, err
	}
	return collectTokens(rows)
}

func (r *PgTokenRepository) query(ctx context.Context, where string, arg any) ([]*Token, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+tokenColumns+`
		FROM tokens
		WHERE `+where+`
		ORDER BY created_at ASC
	`, arg)
	if err != nil {
		return nil, err
	}
	return collectTokens(rows)
}

func collectTokens(rows pgx.Rows) ([]*Token, error) {
	defer rows.Close()

	var result []*Token
	for rows.Next() {
		t, err := scanToken(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
