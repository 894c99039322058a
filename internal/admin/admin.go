// Package admin derives the staff dashboard views from a list of orders:
// filtering, ordering and the daily summary.
package admin

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/tapntake/api/internal/enum"
	"github.com/tapntake/api/internal/order"
)

const (
	StatusAll    = "all"
	StatusActive = "active"
)

// Query narrows the order list. Zero values match everything.
type Query struct {
	Search   string
	Status   string
	Date     time.Time
	Location *time.Location
}

// Summary is the dashboard header for one calendar day.
type Summary struct {
	Date          string          `json:"date"`
	Orders        int             `json:"orders"`
	Counts        map[string]int  `json:"counts"`
	Active        int             `json:"active"`
	DateTotal     decimal.Decimal `json:"date_total"`
	OrdersPerHour float64         `json:"orders_per_hour"`
	UnpaidCounter int             `json:"unpaid_counter"`
}

func location(loc *time.Location) *time.Location {
	if loc == nil {
		return time.UTC
	}
	return loc
}

// SameDay reports whether t falls on the calendar day of day in loc.
func SameDay(t, day time.Time, loc *time.Location) bool {
	loc = location(loc)
	ty, tm, td := t.In(loc).Date()
	dy, dm, dd := day.In(loc).Date()
	return ty == dy && tm == dm && td == dd
}

// Filter returns the orders matching q, preserving input order.
func Filter(orders []order.Order, q Query) []order.Order {
	search := strings.ToLower(strings.TrimSpace(q.Search))
	out := make([]order.Order, 0, len(orders))
	for _, o := range orders {
		if search != "" &&
			!strings.Contains(strings.ToLower(o.ID), search) &&
			!strings.Contains(strings.ToLower(o.CustomerName), search) {
			continue
		}
		switch q.Status {
		case "", StatusAll:
		case StatusActive:
			if !o.IsActive() {
				continue
			}
		default:
			if o.Status != q.Status {
				continue
			}
		}
		if !q.Date.IsZero() && !SameDay(o.Timestamp, q.Date, q.Location) {
			continue
		}
		out = append(out, o)
	}
	return out
}

// SortNewestFirst orders by placement time descending, ties broken by ID.
func SortNewestFirst(orders []order.Order) {
	sort.SliceStable(orders, func(i, j int) bool {
		if !orders[i].Timestamp.Equal(orders[j].Timestamp) {
			return orders[i].Timestamp.After(orders[j].Timestamp)
		}
		return orders[i].ID > orders[j].ID
	})
}

// Summarize computes the dashboard header for the given day.
func Summarize(orders []order.Order, date time.Time, loc *time.Location) Summary {
	loc = location(loc)
	s := Summary{
		Date:      date.In(loc).Format(time.DateOnly),
		Counts:    map[string]int{},
		DateTotal: decimal.Zero,
	}

	var first, last time.Time
	for _, o := range orders {
		if !SameDay(o.Timestamp, date, loc) {
			continue
		}
		s.Orders++
		s.Counts[o.Status]++
		if o.IsActive() {
			s.Active++
		}
		if o.Status == enum.OrderStatusCompleted {
			s.DateTotal = s.DateTotal.Add(o.Total)
		}
		if o.PaymentStatus == enum.PaymentStatusCounterPending && o.Status != enum.OrderStatusCancelled {
			s.UnpaidCounter++
		}
		if first.IsZero() || o.Timestamp.Before(first) {
			first = o.Timestamp
		}
		if o.Timestamp.After(last) {
			last = o.Timestamp
		}
	}

	if s.Orders > 0 {
		hours := math.Max(last.Sub(first).Hours(), 1)
		s.OrdersPerHour = math.Round(float64(s.Orders)/hours*100) / 100
	}
	return s
}
