// README: Parcel store backed by PostgreSQL.
package parcel

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"masar/internal/types"
)

const uniqueViolation = "23505"

type PostgresStore struct {
	db *pgxpool.Pool
}

func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

const parcelColumns = `
	id, tracking_number, shipper_id, carrier_id, description, weight_kg,
	pickup_country, pickup_region, pickup_city, pickup_address, pickup_lat, pickup_lng,
	delivery_country, delivery_region, delivery_city, delivery_address, delivery_lat, delivery_lng,
	receiver_name, receiver_phone, status, payment_status, payment_session_id,
	distance_km, price, platform_fee_bp, platform_fee, driver_amount,
	status_version, created_at, updated_at, picked_up_at, delivered_at, cancelled_at, cancel_reason`

func (s *PostgresStore) Create(ctx context.Context, p *Parcel) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO parcels (`+parcelColumns+`)
		VALUES (
			$1, $2, $3, $4, $5, $6,
			$7, $8, $9, $10, $11, $12,
			$13, $14, $15, $16, $17, $18,
			$19, $20, $21, $22, $23,
			$24, $25, $26, $27, $28,
			$29, $30, $31, $32, $33, $34, $35
		)`,
		string(p.ID), p.TrackingNumber, string(p.ShipperID), toStringPtr(p.CarrierID), p.Description, p.WeightKg,
		p.Pickup.Country, p.Pickup.Region, p.Pickup.City, p.Pickup.Line, lat(p.Pickup.Point), lng(p.Pickup.Point),
		p.Delivery.Country, p.Delivery.Region, p.Delivery.City, p.Delivery.Line, lat(p.Delivery.Point), lng(p.Delivery.Point),
		p.ReceiverName, p.ReceiverPhone, string(p.Status), string(p.PaymentStatus), p.PaymentSessionID,
		p.Pricing.DistanceKm, p.Pricing.TotalPrice.Amount, int64(p.Pricing.PlatformFeePercent), p.Pricing.PlatformFee.Amount, p.Pricing.DriverAmount.Amount,
		p.StatusVersion, p.CreatedAt, p.UpdatedAt, p.PickedUpAt, p.DeliveredAt, p.CancelledAt, p.CancelReason,
	)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation && pgErr.ConstraintName == "parcels_tracking_number_key" {
		return ErrDuplicateTracking
	}
	return err
}

func scanParcel(row pgx.Row) (*Parcel, error) {
	var p Parcel
	var carrierID *string
	var pickupLat, pickupLng, deliveryLat, deliveryLng *float64
	var price, fee, driver, feeBP int64

	err := row.Scan(
		&p.ID, &p.TrackingNumber, &p.ShipperID, &carrierID, &p.Description, &p.WeightKg,
		&p.Pickup.Country, &p.Pickup.Region, &p.Pickup.City, &p.Pickup.Line, &pickupLat, &pickupLng,
		&p.Delivery.Country, &p.Delivery.Region, &p.Delivery.City, &p.Delivery.Line, &deliveryLat, &deliveryLng,
		&p.ReceiverName, &p.ReceiverPhone, &p.Status, &p.PaymentStatus, &p.PaymentSessionID,
		&p.Pricing.DistanceKm, &price, &feeBP, &fee, &driver,
		&p.StatusVersion, &p.CreatedAt, &p.UpdatedAt, &p.PickedUpAt, &p.DeliveredAt, &p.CancelledAt, &p.CancelReason,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if carrierID != nil {
		d := types.ID(*carrierID)
		p.CarrierID = &d
	}
	p.Pickup.Point = types.PointFrom(pickupLat, pickupLng)
	p.Delivery.Point = types.PointFrom(deliveryLat, deliveryLng)
	p.Pricing.TotalPrice = types.NewMoney(price)
	p.Pricing.PlatformFeePercent = types.Percent(feeBP)
	p.Pricing.PlatformFee = types.NewMoney(fee)
	p.Pricing.DriverAmount = types.NewMoney(driver)
	return &p, nil
}

func (s *PostgresStore) getBy(ctx context.Context, column, value string) (*Parcel, error) {
	return scanParcel(s.db.QueryRow(ctx, `SELECT `+parcelColumns+` FROM parcels WHERE `+column+` = $1`, value))
}

func (s *PostgresStore) Get(ctx context.Context, id types.ID) (*Parcel, error) {
	return s.getBy(ctx, "id", string(id))
}

func (s *PostgresStore) GetByTracking(ctx context.Context, tracking string) (*Parcel, error) {
	return s.getBy(ctx, "tracking_number", tracking)
}

func (s *PostgresStore) GetBySession(ctx context.Context, sessionID string) (*Parcel, error) {
	return s.getBy(ctx, "payment_session_id", sessionID)
}

func (s *PostgresStore) UpdateDetails(ctx context.Context, p *Parcel, version int) (bool, error) {
	tag, err := s.db.Exec(ctx, `
		UPDATE parcels
		SET description = $1, weight_kg = $2,
		    pickup_country = $3, pickup_region = $4, pickup_city = $5, pickup_address = $6, pickup_lat = $7, pickup_lng = $8,
		    delivery_country = $9, delivery_region = $10, delivery_city = $11, delivery_address = $12, delivery_lat = $13, delivery_lng = $14,
		    receiver_name = $15, receiver_phone = $16,
		    distance_km = $17, price = $18, platform_fee_bp = $19, platform_fee = $20, driver_amount = $21,
		    payment_session_id = $22,
		    status_version = status_version + 1,
		    updated_at = NOW()
		WHERE id = $23 AND status = 'pending' AND payment_status <> 'paid' AND status_version = $24`,
		p.Description, p.WeightKg,
		p.Pickup.Country, p.Pickup.Region, p.Pickup.City, p.Pickup.Line, lat(p.Pickup.Point), lng(p.Pickup.Point),
		p.Delivery.Country, p.Delivery.Region, p.Delivery.City, p.Delivery.Line, lat(p.Delivery.Point), lng(p.Delivery.Point),
		p.ReceiverName, p.ReceiverPhone,
		p.Pricing.DistanceKm, p.Pricing.TotalPrice.Amount, int64(p.Pricing.PlatformFeePercent), p.Pricing.PlatformFee.Amount, p.Pricing.DriverAmount.Amount,
		p.PaymentSessionID,
		string(p.ID), version,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (s *PostgresStore) Accept(ctx context.Context, id, driverID types.ID, requirePaid bool) (bool, error) {
	tag, err := s.db.Exec(ctx, `
		UPDATE parcels
		SET carrier_id = $1,
		    status = 'picked_up',
		    status_version = status_version + 1,
		    picked_up_at = NOW(),
		    updated_at = NOW()
		WHERE id = $2
		  AND status = 'pending'
		  AND carrier_id IS NULL
		  AND (NOT $3 OR payment_status = 'paid')`,
		string(driverID), string(id), requirePaid,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (s *PostgresStore) UpdateStatus(ctx context.Context, id types.ID, from, to Status, version int, reason *string) (bool, error) {
	tag, err := s.db.Exec(ctx, `
		UPDATE parcels
		SET status = $1,
		    status_version = status_version + 1,
		    delivered_at = CASE WHEN $1 = 'delivered' THEN NOW() ELSE delivered_at END,
		    cancelled_at = CASE WHEN $1 = 'cancelled' THEN NOW() ELSE cancelled_at END,
		    cancel_reason = CASE WHEN $1 = 'cancelled' THEN $2 ELSE cancel_reason END,
		    updated_at = NOW()
		WHERE id = $3 AND status = $4 AND status_version = $5`,
		string(to), reason, string(id), string(from), version,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (s *PostgresStore) UpdatePayment(ctx context.Context, id types.ID, from, to PaymentStatus, sessionID *string) (bool, error) {
	tag, err := s.db.Exec(ctx, `
		UPDATE parcels
		SET payment_status = $1,
		    payment_session_id = COALESCE($2, payment_session_id),
		    updated_at = NOW()
		WHERE id = $3 AND payment_status = $4`,
		string(to), sessionID, string(id), string(from),
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (s *PostgresStore) query(ctx context.Context, sql string, args ...any) ([]*Parcel, error) {
	rows, err := s.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*Parcel
	for rows.Next() {
		p, err := scanParcel(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *PostgresStore) ListByShipper(ctx context.Context, shipperID types.ID, page Page) ([]*Parcel, error) {
	page = page.Normalize()
	return s.query(ctx, `
		SELECT `+parcelColumns+` FROM parcels
		WHERE shipper_id = $1
		ORDER BY created_at DESC, id
		LIMIT $2 OFFSET $3`,
		string(shipperID), page.Limit, page.Offset)
}

func (s *PostgresStore) ListForDriver(ctx context.Context, driverID types.ID, requirePaid bool, page Page) ([]*Parcel, error) {
	page = page.Normalize()
	return s.query(ctx, `
		SELECT `+parcelColumns+` FROM parcels
		WHERE (status = 'pending' AND carrier_id IS NULL AND (NOT $2 OR payment_status = 'paid'))
		   OR carrier_id = $1
		ORDER BY created_at DESC, id
		LIMIT $3 OFFSET $4`,
		string(driverID), requirePaid, page.Limit, page.Offset)
}

func (s *PostgresStore) ListAll(ctx context.Context, filter ListFilter, page Page) ([]*Parcel, error) {
	page = page.Normalize()
	var status *string
	if filter.Status != nil {
		v := string(*filter.Status)
		status = &v
	}
	return s.query(ctx, `
		SELECT `+parcelColumns+` FROM parcels
		WHERE ($1::text IS NULL OR status = $1)
		ORDER BY created_at DESC, id
		LIMIT $2 OFFSET $3`,
		status, page.Limit, page.Offset)
}

func (s *PostgresStore) AppendEvent(ctx context.Context, e *Event) error {
	return s.db.QueryRow(ctx, `
		INSERT INTO parcel_status_events (
			parcel_id, kind, from_status, to_status, actor_role, actor_id, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`,
		string(e.ParcelID), e.Kind, e.From, e.To, e.ActorRole, toStringPtr(e.ActorID), e.CreatedAt,
	).Scan(&e.ID)
}

func (s *PostgresStore) CreateRating(ctx context.Context, r *Rating) (bool, error) {
	tag, err := s.db.Exec(ctx, `
		INSERT INTO parcel_ratings (parcel_id, shipper_id, score, comment, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (parcel_id) DO NOTHING`,
		string(r.ParcelID), string(r.ShipperID), r.Score, r.Comment, r.CreatedAt,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (s *PostgresStore) GetRating(ctx context.Context, parcelID types.ID) (*Rating, error) {
	var r Rating
	err := s.db.QueryRow(ctx, `
		SELECT parcel_id, shipper_id, score, comment, created_at
		FROM parcel_ratings WHERE parcel_id = $1`, string(parcelID),
	).Scan(&r.ParcelID, &r.ShipperID, &r.Score, &r.Comment, &r.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *PostgresStore) Stats(ctx context.Context, since time.Time) (Stats, error) {
	st := Stats{ByStatus: make(map[Status]int64)}

	rows, err := s.db.Query(ctx, `SELECT status, COUNT(*) FROM parcels GROUP BY status`)
	if err != nil {
		return Stats{}, err
	}
	for rows.Next() {
		var status Status
		var n int64
		if err := rows.Scan(&status, &n); err != nil {
			rows.Close()
			return Stats{}, err
		}
		st.ByStatus[status] = n
		st.Total += n
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return Stats{}, err
	}

	var revenue, fees int64
	if err := s.db.QueryRow(ctx, `
		SELECT COALESCE(SUM(price), 0), COALESCE(SUM(platform_fee), 0)
		FROM parcels WHERE status = 'delivered'`,
	).Scan(&revenue, &fees); err != nil {
		return Stats{}, err
	}
	st.DeliveredRevenue = types.NewMoney(revenue)
	st.PlatformFees = types.NewMoney(fees)

	daily, err := s.db.Query(ctx, `
		SELECT date_trunc('day', created_at AT TIME ZONE 'UTC') AS day, COUNT(*)
		FROM parcels
		WHERE created_at >= $1
		GROUP BY day
		ORDER BY day`, since)
	if err != nil {
		return Stats{}, err
	}
	defer daily.Close()
	for daily.Next() {
		var dc DailyCount
		if err := daily.Scan(&dc.Day, &dc.Count); err != nil {
			return Stats{}, err
		}
		st.Daily = append(st.Daily, dc)
	}
	return st, daily.Err()
}

func toStringPtr(v *types.ID) *string {
	if v == nil {
		return nil
	}
	s := string(*v)
	return &s
}

func lat(p *types.Point) *float64 {
	if p == nil {
		return nil
	}
	return &p.Lat
}

func lng(p *types.Point) *float64 {
	if p == nil {
		return nil
	}
	return &p.Lng
}
