package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/iliyamo/lodging-listings/internal/aggregate"
	"github.com/iliyamo/lodging-listings/internal/logger"
	"github.com/iliyamo/lodging-listings/internal/model"
	"github.com/iliyamo/lodging-listings/internal/pricing"
)

// PropertyRepo stores property aggregates: the properties row plus the
// rooms, amenities, images and rules it owns.  Every write runs in exactly
// one transaction; owned collections are replaced wholesale on update.
// There is no version column, so concurrent updates of the same property
// resolve last-writer-wins.
type PropertyRepo struct {
	db       *sql.DB
	validate *validator.Validate
}

// NewPropertyRepo constructs a PropertyRepo with the given DB handle.
func NewPropertyRepo(db *sql.DB) *PropertyRepo {
	return &PropertyRepo{db: db, validate: newValidator()}
}

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

const propertyColumns = `id, host_id, name, description, street, city, state, country, postal_code,
	latitude, longitude, geohash, property_type, guest_capacity, bedroom_count, bed_count, bathroom_count,
	check_in_time, check_out_time, cancellation_policy, pet_policy, event_policy, star_rating,
	created_at, updated_at`

const roomColumns = `id, property_id, position, name, room_type, beds, max_occupancy,
	base_price, cleaning_fee, service_fee, tax_rate, security_deposit, description`

const qInsertProperty = `INSERT INTO properties (host_id, name, description, street, city, state, country, postal_code,
	latitude, longitude, geohash, property_type, guest_capacity, bedroom_count, bed_count, bathroom_count,
	check_in_time, check_out_time, cancellation_policy, pet_policy, event_policy, star_rating)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

const qUpdateProperty = `UPDATE properties
	SET name = ?, description = ?, street = ?, city = ?, state = ?, country = ?, postal_code = ?,
	    latitude = ?, longitude = ?, geohash = ?, property_type = ?, guest_capacity = ?, bedroom_count = ?,
	    bed_count = ?, bathroom_count = ?, check_in_time = ?, check_out_time = ?, cancellation_policy = ?,
	    pet_policy = ?, event_policy = ?, star_rating = ?, updated_at = CURRENT_TIMESTAMP
	WHERE id = ?`

// scalarArgs returns the bind values of every column after host_id, in
// the order used by qInsertProperty and qUpdateProperty.
func scalarArgs(p aggregate.PropertyRow) []any {
	return []any{
		p.Name, p.Description, p.Street, p.City, p.State, p.Country, p.PostalCode,
		p.Latitude, p.Longitude, p.Geohash, p.PropertyType, p.GuestCapacity, p.BedroomCount,
		p.BedCount, p.BathroomCount, p.CheckInTime, p.CheckOutTime, p.CancellationPolicy,
		p.PetPolicy, p.EventPolicy, p.StarRating,
	}
}

// Create validates p and inserts it with all owned rows.  Nothing is
// written when validation fails; a failure after BEGIN rolls everything
// back.  The returned aggregate carries the generated ids and timestamps.
func (r *PropertyRepo) Create(ctx context.Context, p *model.Property) (*model.Property, error) {
	if p.HostID == 0 {
		return nil, &ValidationError{Field: "host_id", Reason: "is required"}
	}
	if err := r.prepare(p); err != nil {
		return nil, err
	}
	rows, err := aggregate.Flatten(*p)
	if err != nil {
		return nil, &ValidationError{Field: "rooms", Reason: err.Error()}
	}

	var out *model.Property
	err = r.withTx(ctx, "create property", func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, qInsertProperty, append([]any{rows.Property.HostID}, scalarArgs(rows.Property)...)...)
		if err != nil {
			return err
		}
		id, err := res.LastInsertId()
		if err != nil {
			return err
		}
		rows.SetPropertyID(uint64(id))
		if err := insertOwned(ctx, tx, rows); err != nil {
			return err
		}
		out, err = r.load(ctx, tx, uint64(id))
		return err
	})
	if err != nil {
		return nil, err
	}
	logger.FromContext(ctx).Info("property created", "property_id", out.ID, "host_id", out.HostID, "rooms", len(out.Rooms))
	return out, nil
}

// GetByID returns the reconstructed aggregate or ErrPropertyNotFound.
func (r *PropertyRepo) GetByID(ctx context.Context, id uint64) (*model.Property, error) {
	p, err := r.load(ctx, r.db, id)
	if err != nil {
		return nil, persistence("get property", err)
	}
	return p, nil
}

// Update replaces the property's scalar fields and every owned collection
// with those of p.  The caller must own the property or be an admin; the
// host never changes.  A nil collection in p deletes all rows of that kind.
//
// Ownership is checked before p is validated, so a non-owner is refused
// the same way whatever the body contains.  Both checks happen before any
// row is written.
func (r *PropertyRepo) Update(ctx context.Context, id uint64, p *model.Property, caller model.Caller) (*model.Property, error) {
	var out *model.Property
	err := r.withTx(ctx, "update property", func(tx *sql.Tx) error {
		var hostID uint64
		if err := tx.QueryRowContext(ctx, `SELECT host_id FROM properties WHERE id = ? FOR UPDATE`, id).Scan(&hostID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrPropertyNotFound
			}
			return err
		}
		if err := RequireOwnerOrAdmin(caller, hostID); err != nil {
			return err
		}
		if err := r.prepare(p); err != nil {
			return err
		}
		rows, err := aggregate.Flatten(*p)
		if err != nil {
			return &ValidationError{Field: "rooms", Reason: err.Error()}
		}
		rows.SetPropertyID(id)
		rows.Property.HostID = hostID

		if _, err := tx.ExecContext(ctx, qUpdateProperty, append(scalarArgs(rows.Property), id)...); err != nil {
			return err
		}
		if err := deleteOwned(ctx, tx, id); err != nil {
			return err
		}
		if err := insertOwned(ctx, tx, rows); err != nil {
			return err
		}
		out, err = r.load(ctx, tx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	logger.FromContext(ctx).Info("property updated", "property_id", id, "caller_id", caller.ID)
	return out, nil
}

// Delete removes the property and everything it owns.  Only admins may
// delete; a second delete of the same id reports ErrPropertyNotFound.
func (r *PropertyRepo) Delete(ctx context.Context, id uint64, caller model.Caller) error {
	if err := RequireAdmin(caller); err != nil {
		return err
	}
	err := r.withTx(ctx, "delete property", func(tx *sql.Tx) error {
		var found uint64
		if err := tx.QueryRowContext(ctx, `SELECT id FROM properties WHERE id = ? FOR UPDATE`, id).Scan(&found); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrPropertyNotFound
			}
			return err
		}
		if err := deleteOwned(ctx, tx, id); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `DELETE FROM properties WHERE id = ?`, id)
		return err
	})
	if err != nil {
		return err
	}
	logger.FromContext(ctx).Info("property deleted", "property_id", id, "caller_id", caller.ID)
	return nil
}

// List returns every property for admins and the caller's own properties
// otherwise, newest first, each with a rooms summary and primary image.
func (r *PropertyRepo) List(ctx context.Context, caller model.Caller) ([]model.PropertySummary, error) {
	q := `SELECT ` + propertyColumns + ` FROM properties`
	var args []any
	if !caller.IsAdmin() {
		q += ` WHERE host_id = ?`
		args = append(args, caller.ID)
	}
	q += ` ORDER BY created_at DESC, id DESC`

	rs, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, persistence("list properties", err)
	}
	defer rs.Close()

	var props []aggregate.PropertyRow
	for rs.Next() {
		pr, err := scanProperty(rs)
		if err != nil {
			return nil, persistence("list properties", err)
		}
		props = append(props, pr)
	}
	if err := rs.Err(); err != nil {
		return nil, persistence("list properties", err)
	}

	ids := make([]uint64, len(props))
	for i, pr := range props {
		ids[i] = pr.ID
	}
	listings, err := r.Listings(ctx, ids)
	if err != nil {
		return nil, err
	}

	out := make([]model.PropertySummary, 0, len(props))
	for _, pr := range props {
		p, _ := aggregate.Build(aggregate.Rows{Property: pr})
		l := listings[pr.ID]
		s := model.PropertySummary{
			ID:            p.ID,
			HostID:        p.HostID,
			Name:          p.Name,
			PropertyType:  p.PropertyType,
			City:          p.Address.City,
			Country:       p.Address.Country,
			Coordinates:   p.Coordinates,
			GuestCapacity: p.GuestCapacity,
			StarRating:    p.StarRating,
			Rooms:         l.Rooms,
			PrimaryImage:  l.PrimaryImage,
			CreatedAt:     p.CreatedAt,
			UpdatedAt:     p.UpdatedAt,
		}
		if s.Rooms == nil {
			s.Rooms = []model.RoomSummary{}
		}
		s.DisplayPrice = pricing.DisplayPriceOf(s.Rooms)
		out = append(out, s)
	}
	return out, nil
}

// RoomsByProperty returns the rooms of a property in their stored order.
func (r *PropertyRepo) RoomsByProperty(ctx context.Context, propertyID uint64) ([]model.Room, error) {
	var found uint64
	if err := r.db.QueryRowContext(ctx, `SELECT id FROM properties WHERE id = ?`, propertyID).Scan(&found); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPropertyNotFound
		}
		return nil, persistence("list rooms", err)
	}
	rows, err := loadRooms(ctx, r.db, propertyID)
	if err != nil {
		return nil, persistence("list rooms", err)
	}
	out := make([]model.Room, 0, len(rows))
	for _, rr := range rows {
		room, ok := aggregate.BuildRoom(rr)
		if !ok {
			logger.FromContext(ctx).Warn("unparseable bed composition read as empty", "room_id", rr.ID)
		}
		out = append(out, room)
	}
	return out, nil
}

// RoomByID returns a single room or ErrRoomNotFound.
func (r *PropertyRepo) RoomByID(ctx context.Context, roomID uint64) (*model.Room, uint64, error) {
	rr, err := scanRoom(r.db.QueryRowContext(ctx, `SELECT `+roomColumns+` FROM rooms WHERE id = ?`, roomID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, 0, ErrRoomNotFound
		}
		return nil, 0, persistence("get room", err)
	}
	room, ok := aggregate.BuildRoom(rr)
	if !ok {
		logger.FromContext(ctx).Warn("unparseable bed composition read as empty", "room_id", rr.ID)
	}
	return &room, rr.PropertyID, nil
}

// withTx runs fn in a transaction, committing when it returns nil and
// rolling back otherwise.  Storage errors come back as *PersistenceError.
func (r *PropertyRepo) withTx(ctx context.Context, op string, fn func(tx *sql.Tx) error) (err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return persistence(op, err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
			return
		}
		if cerr := tx.Commit(); cerr != nil {
			err = persistence(op, cerr)
		}
	}()
	return persistence(op, fn(tx))
}

// load reads the property row and all owned rows and rebuilds the
// aggregate.  Anything the lenient read discards is logged.
func (r *PropertyRepo) load(ctx context.Context, q queryer, id uint64) (*model.Property, error) {
	pr, err := scanProperty(q.QueryRowContext(ctx, `SELECT `+propertyColumns+` FROM properties WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPropertyNotFound
		}
		return nil, err
	}
	rows := aggregate.Rows{Property: pr}
	if rows.Rooms, err = loadRooms(ctx, q, id); err != nil {
		return nil, err
	}
	if rows.Amenities, err = loadAmenities(ctx, q, id); err != nil {
		return nil, err
	}
	if rows.Images, err = loadImages(ctx, q, id); err != nil {
		return nil, err
	}
	if rows.Rules, err = loadRules(ctx, q, id); err != nil {
		return nil, err
	}

	p, h := aggregate.Build(rows)
	if !h.Clean() {
		logger.FromContext(ctx).Warn("lenient read discarded stored data",
			"property_id", id,
			"dropped_amenities", h.DroppedAmenities,
			"unparseable_bed_rooms", h.UnparseableBeds,
			"invalid_times", h.InvalidTimes,
		)
	}
	return &p, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProperty(s rowScanner) (aggregate.PropertyRow, error) {
	var p aggregate.PropertyRow
	err := s.Scan(
		&p.ID, &p.HostID, &p.Name, &p.Description, &p.Street, &p.City, &p.State, &p.Country, &p.PostalCode,
		&p.Latitude, &p.Longitude, &p.Geohash, &p.PropertyType, &p.GuestCapacity, &p.BedroomCount, &p.BedCount, &p.BathroomCount,
		&p.CheckInTime, &p.CheckOutTime, &p.CancellationPolicy, &p.PetPolicy, &p.EventPolicy, &p.StarRating,
		&p.CreatedAt, &p.UpdatedAt,
	)
	return p, err
}

func scanRoom(s rowScanner) (aggregate.RoomRow, error) {
	var r aggregate.RoomRow
	err := s.Scan(
		&r.ID, &r.PropertyID, &r.Position, &r.Name, &r.RoomType, &r.Beds, &r.MaxOccupancy,
		&r.BasePrice, &r.CleaningFee, &r.ServiceFee, &r.TaxRate, &r.SecurityDeposit, &r.Description,
	)
	return r, err
}

func loadRooms(ctx context.Context, q queryer, propertyID uint64) ([]aggregate.RoomRow, error) {
	rs, err := q.QueryContext(ctx, `SELECT `+roomColumns+` FROM rooms WHERE property_id = ? ORDER BY position, id`, propertyID)
	if err != nil {
		return nil, err
	}
	defer rs.Close()
	var out []aggregate.RoomRow
	for rs.Next() {
		r, err := scanRoom(rs)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rs.Err()
}

func loadAmenities(ctx context.Context, q queryer, propertyID uint64) ([]aggregate.AmenityRow, error) {
	rs, err := q.QueryContext(ctx, `SELECT property_id, position, category, name FROM property_amenities WHERE property_id = ? ORDER BY position`, propertyID)
	if err != nil {
		return nil, err
	}
	defer rs.Close()
	var out []aggregate.AmenityRow
	for rs.Next() {
		var a aggregate.AmenityRow
		if err := rs.Scan(&a.PropertyID, &a.Position, &a.Category, &a.Name); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rs.Err()
}

func loadImages(ctx context.Context, q queryer, propertyID uint64) ([]aggregate.ImageRow, error) {
	rs, err := q.QueryContext(ctx, `SELECT id, property_id, position, url, caption FROM property_images WHERE property_id = ? ORDER BY position, id`, propertyID)
	if err != nil {
		return nil, err
	}
	defer rs.Close()
	var out []aggregate.ImageRow
	for rs.Next() {
		var i aggregate.ImageRow
		if err := rs.Scan(&i.ID, &i.PropertyID, &i.Position, &i.URL, &i.Caption); err != nil {
			return nil, err
		}
		out = append(out, i)
	}
	return out, rs.Err()
}

func loadRules(ctx context.Context, q queryer, propertyID uint64) ([]aggregate.RuleRow, error) {
	rs, err := q.QueryContext(ctx, `SELECT property_id, position, rule FROM property_rules WHERE property_id = ? ORDER BY position`, propertyID)
	if err != nil {
		return nil, err
	}
	defer rs.Close()
	var out []aggregate.RuleRow
	for rs.Next() {
		var r aggregate.RuleRow
		if err := rs.Scan(&r.PropertyID, &r.Position, &r.Rule); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rs.Err()
}

// deleteOwned removes every row owned by the property.
func deleteOwned(ctx context.Context, tx *sql.Tx, propertyID uint64) error {
	for _, table := range []string{"rooms", "property_amenities", "property_images", "property_rules"} {
		if _, err := tx.ExecContext(ctx, `DELETE FROM `+table+` WHERE property_id = ?`, propertyID); err != nil {
			return err
		}
	}
	return nil
}

// insertOwned bulk-inserts each owned collection with one statement per
// table; empty collections issue no statement.
func insertOwned(ctx context.Context, tx *sql.Tx, rows aggregate.Rows) error {
	if len(rows.Rooms) > 0 {
		args := make([]any, 0, len(rows.Rooms)*12)
		for _, r := range rows.Rooms {
			args = append(args, r.PropertyID, r.Position, r.Name, r.RoomType, r.Beds, r.MaxOccupancy,
				r.BasePrice, r.CleaningFee, r.ServiceFee, r.TaxRate, r.SecurityDeposit, r.Description)
		}
		q := `INSERT INTO rooms (property_id, position, name, room_type, beds, max_occupancy,
			base_price, cleaning_fee, service_fee, tax_rate, security_deposit, description) VALUES ` + placeholders(len(rows.Rooms), 12)
		if _, err := tx.ExecContext(ctx, q, args...); err != nil {
			return err
		}
	}
	if len(rows.Amenities) > 0 {
		args := make([]any, 0, len(rows.Amenities)*4)
		for _, a := range rows.Amenities {
			args = append(args, a.PropertyID, a.Position, a.Category, a.Name)
		}
		q := `INSERT INTO property_amenities (property_id, position, category, name) VALUES ` + placeholders(len(rows.Amenities), 4)
		if _, err := tx.ExecContext(ctx, q, args...); err != nil {
			return err
		}
	}
	if len(rows.Images) > 0 {
		args := make([]any, 0, len(rows.Images)*4)
		for _, i := range rows.Images {
			args = append(args, i.PropertyID, i.Position, i.URL, i.Caption)
		}
		q := `INSERT INTO property_images (property_id, position, url, caption) VALUES ` + placeholders(len(rows.Images), 4)
		if _, err := tx.ExecContext(ctx, q, args...); err != nil {
			return err
		}
	}
	if len(rows.Rules) > 0 {
		args := make([]any, 0, len(rows.Rules)*3)
		for _, r := range rows.Rules {
			args = append(args, r.PropertyID, r.Position, r.Rule)
		}
		q := `INSERT INTO property_rules (property_id, position, rule) VALUES ` + placeholders(len(rows.Rules), 3)
		if _, err := tx.ExecContext(ctx, q, args...); err != nil {
			return err
		}
	}
	return nil
}

// placeholders renders n groups of width "?" markers: "(?, ?),(?, ?)".
func placeholders(n, width int) string {
	group := "(" + strings.TrimSuffix(strings.Repeat("?, ", width), ", ") + ")"
	return strings.TrimSuffix(strings.Repeat(group+",", n), ",")
}
