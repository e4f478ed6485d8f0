// internal/booking/pricing.go
package booking

// DefaultHourlyRateCents is charged when a court has no configured rate.
// Bookings on unpriced courts succeed at this fallback rate instead of
// failing; the engine logs a warning when it applies.
const DefaultHourlyRateCents int64 = 10_000

// HourlyRateOrDefault resolves a court's nullable rate.
func HourlyRateOrDefault(hourlyRateCents *int64) int64 {
	if hourlyRateCents == nil {
		return DefaultHourlyRateCents
	}
	return *hourlyRateCents
}

// SlotPriceCents computes rate x duration for a single slot. Fractional
// hours are allowed; the result truncates sub-cent remainders.
func SlotPriceCents(hourlyRateCents *int64, minutes int) int64 {
	return HourlyRateOrDefault(hourlyRateCents) * int64(minutes) / 60
}
