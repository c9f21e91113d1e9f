package pricing

import "github.com/shopspring/decimal"

// dayRatePrecision keeps enough fractional minor units that rate × days stays within
// one minor unit of the base price even for a 366-day interval.
const dayRatePrecision = 6

// DayRate is basePrice / days in minor units, rounded half-up at dayRatePrecision.
func DayRate(basePrice int64, days int) decimal.Decimal {
	if days <= 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(basePrice).DivRound(decimal.NewFromInt(int64(days)), dayRatePrecision)
}

// RoundMinor rounds to a whole minor unit, half-up (half away from zero).
func RoundMinor(amount decimal.Decimal) int64 {
	return amount.Round(0).IntPart()
}

// ProratedAmount is rate × days rounded to the minor unit.
func ProratedAmount(dayRate decimal.Decimal, days int) int64 {
	if days <= 0 {
		return 0
	}
	return RoundMinor(dayRate.Mul(decimal.NewFromInt(int64(days))))
}

// exactProration computes basePrice × days / daysInInterval with a single rounding step.
func exactProration(basePrice int64, days, daysInInterval int) int64 {
	if days <= 0 || daysInInterval <= 0 {
		return 0
	}
	numerator := decimal.NewFromInt(basePrice).Mul(decimal.NewFromInt(int64(days)))
	return RoundMinor(numerator.DivRound(decimal.NewFromInt(int64(daysInInterval)), 0))
}

func floorZero(v int64) int64 {
	if v < 0 {
		return 0
	}
	return v
}
