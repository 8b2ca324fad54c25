package repository

import (
	"context"

	"github.com/google/uuid"

	"claims_intake_backend/internal/claims/domain"
)

const vehicleColumns = `id, case_id, role, plate, vin, driver_name, insurer_name, offender, offender_known`

// ListVehicles returns every vehicle on the case, ordered by plate so the
// reconciler sees a stable view.
func (r *Repository) ListVehicles(ctx context.Context, q Querier, caseID uuid.UUID) ([]domain.Vehicle, error) {
	rows, err := q.Query(ctx, `
		SELECT `+vehicleColumns+` FROM involved_vehicles
		WHERE case_id = $1
		ORDER BY plate ASC
	`, caseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	vehicles := make([]domain.Vehicle, 0)
	for rows.Next() {
		var v domain.Vehicle
		if err := rows.Scan(&v.ID, &v.CaseID, &v.Role, &v.Plate, &v.VIN, &v.DriverName, &v.InsurerName, &v.Offender, &v.OffenderKnown); err != nil {
			return nil, err
		}
		vehicles = append(vehicles, v)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return vehicles, nil
}

// ApplyVehicleChanges persists the reconciler's output. (case_id, plate) is
// unique, so a create racing a duplicate plate folds into an update of the
// same row.
func (r *Repository) ApplyVehicleChanges(ctx context.Context, q Querier, changes []domain.VehicleChange) error {
	for _, ch := range changes {
		v := ch.Vehicle
		_, err := q.Exec(ctx, `
			INSERT INTO involved_vehicles (id, case_id, role, plate, vin, driver_name, insurer_name, offender, offender_known)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			ON CONFLICT (case_id, plate) DO UPDATE SET
				role = EXCLUDED.role,
				vin = EXCLUDED.vin,
				driver_name = EXCLUDED.driver_name,
				insurer_name = EXCLUDED.insurer_name,
				offender = EXCLUDED.offender,
				offender_known = EXCLUDED.offender_known
		`, v.ID, v.CaseID, v.Role, v.Plate, v.VIN, v.DriverName, v.InsurerName, v.Offender, v.OffenderKnown)
		if err != nil {
			return err
		}
	}
	return nil
}

// FindOffenderVehicle returns the vehicle established as at fault, if any.
// Used to pick the insurer the claim is filed against.
func (r *Repository) FindOffenderVehicle(ctx context.Context, caseID uuid.UUID) (domain.Vehicle, bool, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+vehicleColumns+` FROM involved_vehicles
		WHERE case_id = $1 AND offender_known AND offender
		ORDER BY plate ASC
		LIMIT 1
	`, caseID)
	if err != nil {
		return domain.Vehicle{}, false, err
	}
	defer rows.Close()

	if !rows.Next() {
		return domain.Vehicle{}, false, rows.Err()
	}
	var v domain.Vehicle
	if err := rows.Scan(&v.ID, &v.CaseID, &v.Role, &v.Plate, &v.VIN, &v.DriverName, &v.InsurerName, &v.Offender, &v.OffenderKnown); err != nil {
		return domain.Vehicle{}, false, err
	}
	return v, true, nil
}
