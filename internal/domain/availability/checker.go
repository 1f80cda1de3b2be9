package availability

import (
	"context"
	"fmt"

	"rentals/internal/domain/items"
	"rentals/internal/domain/rental"
	"rentals/internal/domain/shared/daterange"
	"rentals/internal/domain/shared/failure"
)

var ErrBookingConflict = failure.New(failure.BookingConflict, "availability: item already booked for the requested dates")

const dateLayout = "2006-01-02"

// Conflict describes the rental that already holds part of the requested period.
type Conflict struct {
	RentalID rental.RentalID
	Period   daterange.DateRange
	Status   rental.Status
}

func (c Conflict) Reason() string {
	return fmt.Sprintf("item already booked from %s to %s", c.Period.Start.Format(dateLayout), c.Period.End.Format(dateLayout))
}

// Err turns the conflict into a BookingConflict failure carrying the reason.
func (c Conflict) Err() error {
	return failure.Wrap(failure.BookingConflict, c.Reason(), ErrBookingConflict)
}

// Checker answers whether a period collides with a blocking rental of the item.
// excludeID lets a rental be moved without colliding with itself.
type Checker interface {
	HasConflict(ctx context.Context, itemID items.ItemID, period daterange.DateRange, excludeID rental.RentalID) (Conflict, bool, error)
}

// Scan checks candidates in order and stops at the first overlap. Cancelled,
// completed and removed rentals are ignored.
func Scan(candidates []*rental.Rental, itemID items.ItemID, period daterange.DateRange, excludeID rental.RentalID) (Conflict, bool) {
	for _, r := range candidates {
		if r == nil || r.ItemID != itemID {
			continue
		}
		if excludeID != "" && r.ID == excludeID {
			continue
		}
		if !r.Blocking() {
			continue
		}
		if r.Period.Overlaps(period) {
			return Conflict{RentalID: r.ID, Period: r.Period, Status: r.Status}, true
		}
	}
	return Conflict{}, false
}

// RepositoryChecker scans the rentals loaded from a repository.
type RepositoryChecker struct {
	Rentals rental.Repository
}

func (c RepositoryChecker) HasConflict(ctx context.Context, itemID items.ItemID, period daterange.DateRange, excludeID rental.RentalID) (Conflict, bool, error) {
	list, err := c.Rentals.ListByItem(ctx, itemID)
	if err != nil {
		return Conflict{}, false, err
	}
	conflict, found := Scan(list, itemID, period, excludeID)
	return conflict, found, nil
}

var _ Checker = RepositoryChecker{}
