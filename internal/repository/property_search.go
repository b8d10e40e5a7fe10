package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/iliyamo/lodging-listings/internal/aggregate"
	"github.com/iliyamo/lodging-listings/internal/logger"
	"github.com/iliyamo/lodging-listings/internal/model"
	"github.com/iliyamo/lodging-listings/internal/pricing"
	"github.com/iliyamo/lodging-listings/internal/search"
)

var _ search.Source = (*PropertyRepo)(nil)

// Candidates returns every property with coordinates whose geohash starts
// with one of cells.  An empty cells slice returns all of them.
func (r *PropertyRepo) Candidates(ctx context.Context, cells []string) ([]search.Candidate, error) {
	q := `SELECT id, name, city, country, latitude, longitude, property_type, guest_capacity, star_rating
		FROM properties
		WHERE latitude IS NOT NULL AND longitude IS NOT NULL`
	args := make([]any, 0, len(cells))
	if len(cells) > 0 {
		conds := make([]string, len(cells))
		for i, c := range cells {
			conds[i] = "geohash LIKE ?"
			args = append(args, c+"%")
		}
		q += ` AND (` + strings.Join(conds, " OR ") + `)`
	}

	rs, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, persistence("search candidates", err)
	}
	defer rs.Close()

	var out []search.Candidate
	for rs.Next() {
		var (
			c          search.Candidate
			lat, lon   float64
			ptype      string
			starRating sql.NullFloat64
		)
		if err := rs.Scan(&c.ID, &c.Name, &c.City, &c.Country, &lat, &lon, &ptype, &c.GuestCapacity, &starRating); err != nil {
			return nil, persistence("search candidates", err)
		}
		c.Coordinates = model.GeoPoint{Latitude: lat, Longitude: lon}
		c.PropertyType = model.PropertyType(ptype)
		if starRating.Valid {
			v := starRating.Float64
			c.StarRating = &v
		}
		out = append(out, c)
	}
	if err := rs.Err(); err != nil {
		return nil, persistence("search candidates", err)
	}
	return out, nil
}

// Listings loads the rooms summary and primary image for each id.  Ids
// without rooms or images are simply absent from the corresponding field.
func (r *PropertyRepo) Listings(ctx context.Context, ids []uint64) (map[uint64]search.Listing, error) {
	out := make(map[uint64]search.Listing, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	in := "(" + strings.TrimSuffix(strings.Repeat("?, ", len(ids)), ", ") + ")"

	rs, err := r.db.QueryContext(ctx, `SELECT `+roomColumns+` FROM rooms WHERE property_id IN `+in+` ORDER BY property_id, position, id`, args...)
	if err != nil {
		return nil, persistence("load listings", err)
	}
	for rs.Next() {
		rr, err := scanRoom(rs)
		if err != nil {
			rs.Close()
			return nil, persistence("load listings", err)
		}
		room, ok := aggregate.BuildRoom(rr)
		if !ok {
			logger.FromContext(ctx).Warn("unparseable bed composition read as empty", "room_id", rr.ID)
		}
		l := out[rr.PropertyID]
		l.Rooms = append(l.Rooms, pricing.Summarize(room))
		out[rr.PropertyID] = l
	}
	err = rs.Err()
	rs.Close()
	if err != nil {
		return nil, persistence("load listings", err)
	}

	// first image by position per property
	rs, err = r.db.QueryContext(ctx, `SELECT property_id, url, caption FROM property_images WHERE property_id IN `+in+` ORDER BY property_id, position, id`, args...)
	if err != nil {
		return nil, persistence("load listings", err)
	}
	defer rs.Close()
	for rs.Next() {
		var (
			pid     uint64
			url     string
			caption sql.NullString
		)
		if err := rs.Scan(&pid, &url, &caption); err != nil {
			return nil, persistence("load listings", err)
		}
		l := out[pid]
		if l.PrimaryImage != nil {
			continue
		}
		l.PrimaryImage = &model.Image{URL: url, Caption: caption.String}
		out[pid] = l
	}
	if err := rs.Err(); err != nil {
		return nil, persistence("load listings", err)
	}
	return out, nil
}
