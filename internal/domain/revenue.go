package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Revenue sums Total over accepted and ready orders.
func Revenue(orders []Order) decimal.Decimal {
	sum := decimal.Zero
	for _, o := range orders {
		if o.Status.CountsTowardRevenue() {
			sum = sum.Add(o.Total)
		}
	}
	return sum
}

// RevenueOn is Revenue restricted to orders created on the calendar day of
// day, evaluated in day's location.
func RevenueOn(orders []Order, day time.Time) decimal.Decimal {
	y, m, d := day.Date()
	sum := decimal.Zero
	for _, o := range orders {
		if !o.Status.CountsTowardRevenue() {
			continue
		}
		oy, om, od := o.CreatedAt.In(day.Location()).Date()
		if oy == y && om == m && od == d {
			sum = sum.Add(o.Total)
		}
	}
	return sum
}

func CountByStatus(orders []Order) map[OrderStatus]int {
	counts := make(map[OrderStatus]int, 4)
	for _, o := range orders {
		counts[o.Status]++
	}
	return counts
}
