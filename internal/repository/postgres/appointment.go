package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Bos243/appointment-booking-app/internal/model"
	"github.com/Bos243/appointment-booking-app/pkg/errors"
)

func (r *appointmentRepository) Create(ctx context.Context, appointment *model.Appointment) error {
	query := `
		INSERT INTO appointments (
			id, user_id, employee_id, datetime,
			service_type, status, employee_done, notes,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	appointment.ID = uuid.New()
	appointment.CreatedAt = time.Now()
	appointment.UpdatedAt = time.Now()

	_, err := r.db.ExecContext(ctx, query,
		appointment.ID,
		appointment.UserID,
		appointment.EmployeeID,
		appointment.Datetime,
		appointment.ServiceType,
		appointment.Status,
		appointment.EmployeeDone,
		appointment.Notes,
		appointment.CreatedAt,
		appointment.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create appointment: %w", err)
	}
	return nil
}

func (r *appointmentRepository) Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error) {
	query := `
		SELECT id, user_id, employee_id, datetime,
			   service_type, status, employee_done, notes,
			   created_at, updated_at
		FROM appointments
		WHERE id = $1
	`
	var appointment model.Appointment
	err := r.db.GetContext(ctx, &appointment, query, id)
	if err == sql.ErrNoRows {
		return nil, errors.NotFound("appointment", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get appointment: %w", err)
	}
	return &appointment, nil
}

func (r *appointmentRepository) SetStatus(ctx context.Context, id uuid.UUID, status model.AppointmentStatus, employeeDone bool) error {
	query := `
		UPDATE appointments
		SET status = $1, employee_done = $2, updated_at = $3
		WHERE id = $4
	`
	return r.exec(ctx, query, status, employeeDone, time.Now(), id)
}

func (r *appointmentRepository) SetEmployeeDone(ctx context.Context, id uuid.UUID, done bool) error {
	query := `
		UPDATE appointments
		SET employee_done = $1, updated_at = $2
		WHERE id = $3
	`
	return r.exec(ctx, query, done, time.Now(), id)
}

func (r *appointmentRepository) SetEmployee(ctx context.Context, id uuid.UUID, employeeID *uuid.UUID) error {
	query := `
		UPDATE appointments
		SET employee_id = $1, updated_at = $2
		WHERE id = $3
	`
	return r.exec(ctx, query, employeeID, time.Now(), id)
}

func (r *appointmentRepository) Delete(ctx context.Context, id uuid.UUID) error {
	query := `
		DELETE FROM appointments
		WHERE id = $1
	`
	return r.exec(ctx, query, id)
}

func (r *appointmentRepository) exec(ctx context.Context, query string, args ...interface{}) error {
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update appointment: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return errors.NotFound("appointment", nil)
	}
	return nil
}

func (r *appointmentRepository) List(ctx context.Context, filters *model.AppointmentFilters) ([]*model.Appointment, error) {
	query := `
		SELECT id, user_id, employee_id, datetime,
			   service_type, status, employee_done, notes,
			   created_at, updated_at
		FROM appointments
		WHERE 1=1
	`
	var args []interface{}
	argCount := 1

	if filters != nil {
		if filters.UserID != uuid.Nil {
			query += fmt.Sprintf(" AND user_id = $%d", argCount)
			args = append(args, filters.UserID)
			argCount++
		}
		if filters.EmployeeID != uuid.Nil {
			query += fmt.Sprintf(" AND employee_id = $%d", argCount)
			args = append(args, filters.EmployeeID)
			argCount++
		}
		if filters.Status != "" {
			query += fmt.Sprintf(" AND status = $%d", argCount)
			args = append(args, filters.Status)
			argCount++
		}
	}

	query += " ORDER BY datetime ASC"

	var appointments []*model.Appointment
	err := r.db.SelectContext(ctx, &appointments, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list appointments: %w", err)
	}
	return appointments, nil
}
