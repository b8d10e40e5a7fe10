package search

import (
	"math"

	"github.com/mmcloughlin/geohash"

	"github.com/iliyamo/lodging-listings/internal/model"
)

// maxCellPrecision caps the geohash length used for prefiltering; a
// 6-character cell is about 1.2 x 0.6 km.
const maxCellPrecision = 6

// cellSlack keeps the chosen cell a little larger than the exact bound.
const cellSlack = 1.01

// CoverCells returns a 3x3 block of geohash cells (the cell containing
// origin and its eight neighbours) that contains every point within
// radiusKm of origin.  It returns nil when no such block exists: the
// circle reaches a pole or the antimeridian, or the radius is wider than
// a precision-1 cell.  A nil result means "scan everything".
//
// The latitude bound is radius/R.  The longitude bound is
// asin(sin(radius/R) / cos(lat)), which is exact for a spherical cap that
// does not contain a pole.
func CoverCells(origin model.GeoPoint, radiusKm float64) []string {
	angular := radiusKm / EarthRadiusKm
	latSpan := angular * 180 / math.Pi
	if math.Abs(origin.Latitude)+latSpan >= 90 {
		return nil
	}
	s := math.Sin(angular) / math.Cos(radians(origin.Latitude))
	if s >= 1 {
		return nil
	}
	lonSpan := math.Asin(s) * 180 / math.Pi
	if origin.Longitude-lonSpan <= -180 || origin.Longitude+lonSpan >= 180 {
		return nil
	}

	for prec := uint(maxCellPrecision); prec >= 1; prec-- {
		hash := geohash.EncodeWithPrecision(origin.Latitude, origin.Longitude, prec)
		box := geohash.BoundingBox(hash)
		height := box.MaxLat - box.MinLat
		width := box.MaxLng - box.MinLng
		if height < latSpan*cellSlack || width < lonSpan*cellSlack {
			continue
		}
		// neighbours would wrap around the grid
		if box.MinLat-height < -90 || box.MaxLat+height > 90 ||
			box.MinLng-width < -180 || box.MaxLng+width > 180 {
			return nil
		}
		return append([]string{hash}, geohash.Neighbors(hash)...)
	}
	return nil
}
