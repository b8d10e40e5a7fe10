// Package pricing derives room occupancy from bed composition and nightly
// prices from fee components.  All money arithmetic uses decimals.
package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/iliyamo/lodging-listings/internal/model"
)

// capacity is the number of guests one bed of each type sleeps.
var capacity = map[model.BedType]int{
	model.BedSingle: 1,
	model.BedDouble: 2,
	model.BedQueen:  2,
	model.BedKing:   2,
	model.BedSofa:   1,
	model.BedBunk:   2,
}

var hundred = decimal.NewFromInt(100)

// Capacity returns how many guests one bed of type t sleeps; 0 for unknown
// types.
func Capacity(t model.BedType) int { return capacity[t] }

// Occupancy sums capacity*count over beds.  Unknown bed types contribute
// nothing.
func Occupancy(beds []model.Bed) int {
	total := 0
	for _, b := range beds {
		total += capacity[b.Type] * b.Count
	}
	return total
}

// BedCount is the number of physical beds in the composition.
func BedCount(beds []model.Bed) int {
	n := 0
	for _, b := range beds {
		n += b.Count
	}
	return n
}

// Breakdown is the itemised nightly price of a room.
type Breakdown struct {
	Subtotal        decimal.Decimal     `json:"subtotal"`
	Tax             decimal.Decimal     `json:"tax"`
	Total           decimal.Decimal     `json:"total"`
	SecurityDeposit decimal.NullDecimal `json:"security_deposit"`
}

// Quote computes subtotal = base + cleaning + service and
// total = subtotal + subtotal*taxRatePercent/100.
func Quote(p model.Pricing) Breakdown {
	subtotal := p.BasePrice.Add(p.CleaningFee).Add(p.ServiceFee)
	tax := subtotal.Mul(p.TaxRatePercent).Div(hundred)
	return Breakdown{
		Subtotal:        subtotal,
		Tax:             tax,
		Total:           subtotal.Add(tax),
		SecurityDeposit: p.SecurityDeposit,
	}
}

// RoomTotalPrice is the nightly total of a room including tax.
func RoomTotalPrice(p model.Pricing) decimal.Decimal {
	return Quote(p).Total
}

// PropertyDisplayPrice is the cheapest room total, or the unavailable
// sentinel when there are no rooms.
func PropertyDisplayPrice(rooms []model.Room) model.DisplayPrice {
	if len(rooms) == 0 {
		return model.DisplayPrice{}
	}
	lowest := RoomTotalPrice(rooms[0].Pricing)
	for _, r := range rooms[1:] {
		if t := RoomTotalPrice(r.Pricing); t.LessThan(lowest) {
			lowest = t
		}
	}
	return model.DisplayPrice{Amount: lowest, Available: true}
}

// DisplayPriceOf is PropertyDisplayPrice over room summaries that already
// carry their total.
func DisplayPriceOf(rooms []model.RoomSummary) model.DisplayPrice {
	if len(rooms) == 0 {
		return model.DisplayPrice{}
	}
	lowest := rooms[0].TotalPrice
	for _, r := range rooms[1:] {
		if r.TotalPrice.LessThan(lowest) {
			lowest = r.TotalPrice
		}
	}
	return model.DisplayPrice{Amount: lowest, Available: true}
}

// Summarize projects a room to its summary, computing the total price.
func Summarize(r model.Room) model.RoomSummary {
	return model.RoomSummary{
		ID:           r.ID,
		Name:         r.Name,
		RoomType:     r.RoomType,
		MaxOccupancy: r.MaxOccupancy,
		TotalPrice:   RoomTotalPrice(r.Pricing),
	}
}
