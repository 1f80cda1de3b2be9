package availability

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"rentals/internal/domain/rental"
	"rentals/internal/domain/shared/daterange"
	"rentals/internal/domain/shared/failure"
)

func june(d int) time.Time {
	return time.Date(2025, time.June, d, 0, 0, 0, 0, time.UTC)
}

func booked(id rental.RentalID, from, to int, status rental.Status) *rental.Rental {
	return &rental.Rental{
		ID:     id,
		ItemID: "item-a",
		Period: daterange.DateRange{Start: june(from), End: june(to)},
		Status: status,
	}
}

func TestScan(t *testing.T) {
	existing := []*rental.Rental{
		booked("r-confirmed", 10, 15, rental.StatusConfirmed),
		booked("r-cancelled", 20, 25, rental.StatusCancelled),
		booked("r-completed", 1, 5, rental.StatusCompleted),
	}
	cases := []struct {
		name    string
		from    int
		to      int
		exclude rental.RentalID
		want    bool
	}{
		{"overlaps confirmed", 12, 20, "", true},
		{"adjacent to confirmed", 15, 20, "", false},
		{"ends where confirmed starts", 5, 10, "", false},
		{"over cancelled", 21, 23, "", false},
		{"over completed", 2, 4, "", false},
		{"self excluded", 11, 14, "r-confirmed", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, found := Scan(existing, "item-a", daterange.DateRange{Start: june(tc.from), End: june(tc.to)}, tc.exclude)
			assert.Equal(t, tc.want, found)
		})
	}
}

func TestScanIgnoresOtherItemsAndRemoved(t *testing.T) {
	other := booked("r-other", 10, 15, rental.StatusActive)
	other.ItemID = "item-b"
	removed := booked("r-removed", 10, 15, rental.StatusPending)
	removedAt := june(1)
	removed.RemovedAt = &removedAt

	_, found := Scan([]*rental.Rental{other, removed}, "item-a", daterange.DateRange{Start: june(11), End: june(12)}, "")
	assert.False(t, found)
}

func TestConflictReason(t *testing.T) {
	conflict, found := Scan([]*rental.Rental{booked("r-1", 10, 15, rental.StatusPending)}, "item-a", daterange.DateRange{Start: june(12), End: june(20)}, "")
	assert.True(t, found)
	assert.Equal(t, rental.RentalID("r-1"), conflict.RentalID)
	assert.Equal(t, "item already booked from 2025-06-10 to 2025-06-15", conflict.Reason())

	err := conflict.Err()
	assert.ErrorIs(t, err, ErrBookingConflict)
	assert.True(t, failure.IsKind(err, failure.BookingConflict))
	assert.Equal(t, conflict.Reason(), err.Error())
}
