package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/nandanugg/geofence-tracker/module/core/domain"
	"github.com/nandanugg/geofence-tracker/module/core/internal/repository/database"
)

var _ database.DeviceRepository = (*DeviceRepo)(nil)

type DeviceRepo struct {
	db *sql.DB
}

func NewDeviceRepo(db *sql.DB) *DeviceRepo {
	return &DeviceRepo{db: db}
}

// lastLocationRow holds the nullable last_* columns of the devices table.
type lastLocationRow struct {
	lon, lat, alt, speed, accuracy sql.NullFloat64
	ts                             sql.NullTime
}

func (r *lastLocationRow) dest() []any {
	return []any{&r.lon, &r.lat, &r.alt, &r.speed, &r.accuracy, &r.ts}
}

func (r *lastLocationRow) position() *domain.Position {
	if !r.lon.Valid || !r.lat.Valid || !r.ts.Valid {
		return nil
	}
	return &domain.Position{
		Coordinate: domain.Coordinate{Lon: r.lon.Float64, Lat: r.lat.Float64},
		Altitude:   nullableFloat(r.alt),
		Speed:      nullableFloat(r.speed),
		Accuracy:   nullableFloat(r.accuracy),
		Timestamp:  r.ts.Time,
	}
}

func (r *DeviceRepo) GetDevice(ctx context.Context, deviceID string) (*domain.Device, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT device_id, last_longitude, last_latitude, last_altitude, last_speed, last_accuracy, last_timestamp FROM devices WHERE device_id = $1`,
		deviceID,
	)

	var d domain.Device
	var last lastLocationRow
	if err := row.Scan(append([]any{&d.DeviceID}, last.dest()...)...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", domain.ErrUnknownDevice, deviceID)
		}
		return nil, err
	}
	d.LastLocation = last.position()

	geofences, err := r.geofences(ctx, deviceID)
	if err != nil {
		return nil, err
	}
	d.Geofences = geofences
	return &d, nil
}

func (r *DeviceRepo) geofences(ctx context.Context, deviceID string) ([]domain.Geofence, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, longitude, latitude, radius_meters FROM device_geofences WHERE device_id = $1 ORDER BY position ASC`,
		deviceID,
	)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var results []domain.Geofence
	for rows.Next() {
		var gf domain.Geofence
		if err := rows.Scan(&gf.ID, &gf.Name, &gf.Center.Lon, &gf.Center.Lat, &gf.RadiusMeters); err != nil {
			return nil, err
		}
		results = append(results, gf)
	}
	return results, rows.Err()
}

func (r *DeviceRepo) SaveLocation(ctx context.Context, deviceID string, pos domain.Position) (err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	res, err := tx.ExecContext(ctx,
		`UPDATE devices SET last_longitude = $2, last_latitude = $3, last_altitude = $4, last_speed = $5, last_accuracy = $6, last_timestamp = $7 WHERE device_id = $1`,
		deviceID, pos.Coordinate.Lon, pos.Coordinate.Lat, pos.Altitude, pos.Speed, pos.Accuracy, pos.Timestamp,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		err = fmt.Errorf("%w: %s", domain.ErrUnknownDevice, deviceID)
		return err
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO device_locations (device_id, longitude, latitude, altitude, speed, accuracy, timestamp) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		deviceID, pos.Coordinate.Lon, pos.Coordinate.Lat, pos.Altitude, pos.Speed, pos.Accuracy, pos.Timestamp,
	)
	if err != nil {
		return err
	}

	return tx.Commit()
}

func (r *DeviceRepo) GetHistory(ctx context.Context, query *domain.HistoryQuery) ([]domain.DeviceLocation, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT device_id, longitude, latitude, altitude, speed, accuracy, timestamp FROM device_locations WHERE device_id = $1 AND timestamp >= $2 AND timestamp <= $3 ORDER BY timestamp ASC`,
		query.DeviceID, query.Start, query.End,
	)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var results []domain.DeviceLocation
	for rows.Next() {
		var dl domain.DeviceLocation
		var alt, speed, accuracy sql.NullFloat64
		if err := rows.Scan(&dl.DeviceID, &dl.Position.Coordinate.Lon, &dl.Position.Coordinate.Lat, &alt, &speed, &accuracy, &dl.Position.Timestamp); err != nil {
			return nil, err
		}
		dl.Position.Altitude = nullableFloat(alt)
		dl.Position.Speed = nullableFloat(speed)
		dl.Position.Accuracy = nullableFloat(accuracy)
		results = append(results, dl)
	}
	return results, rows.Err()
}

// ListDevices returns every device with its last location. Geofences are
// not loaded.
func (r *DeviceRepo) ListDevices(ctx context.Context) ([]domain.Device, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT device_id, last_longitude, last_latitude, last_altitude, last_speed, last_accuracy, last_timestamp FROM devices ORDER BY device_id`,
	)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var results []domain.Device
	for rows.Next() {
		var d domain.Device
		var last lastLocationRow
		if err := rows.Scan(append([]any{&d.DeviceID}, last.dest()...)...); err != nil {
			return nil, err
		}
		d.LastLocation = last.position()
		results = append(results, d)
	}
	return results, rows.Err()
}

func nullableFloat(n sql.NullFloat64) *float64 {
	if !n.Valid {
		return nil
	}
	v := n.Float64
	return &v
}
