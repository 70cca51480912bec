// Package status derives an order's lifecycle phase from its timestamps.
package status

import "time"

// Phase is the lifecycle phase of an order.
type Phase string

const (
	Processing     Phase = "Processing"
	Shipped        Phase = "Shipped"
	OutForDelivery Phase = "OutForDelivery"
	Complete       Phase = "Complete"
)

// ShippingDelay is the number of days an order spends in Processing.
const ShippingDelay = 3

// Resolve maps the order timestamps and today's date to a Phase. All three
// values are compared as UTC calendar days:
//
//	placed <= today < placed+3   Processing
//	placed+3 <= today < expected Shipped
//	today == expected            OutForDelivery
//	today > expected             Complete
//
// When expected falls on or before placed+3 the ranges overlap; the delivery
// checks take precedence (Complete, then OutForDelivery, then Shipped). A
// today before placed resolves to Processing.
func Resolve(placedAt, expectedDeliveryAt, today time.Time) Phase {
	placed := day(placedAt)
	expected := day(expectedDeliveryAt)
	now := day(today)

	switch {
	case now.After(expected):
		return Complete
	case now.Equal(expected):
		return OutForDelivery
	case !now.Before(placed.AddDate(0, 0, ShippingDelay)):
		return Shipped
	default:
		return Processing
	}
}

func day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
