package service

import (
	"testing"
	"time"
	_ "time/tzdata"

	"whatsapp-booking-bot/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateSlotsIsDeterministic(t *testing.T) {
	start := time.Date(2026, time.October, 19, 15, 42, 0, 0, time.UTC)
	for _, tc := range []struct{ days, perDay int }{{1, 1}, {3, 4}, {7, 8}} {
		params := CatalogParams{StartDate: start, Days: tc.days, SlotsPerDay: tc.perDay, StartHour: 9, IntervalMinutes: 60}
		first := GenerateSlots(params)
		second := GenerateSlots(params)

		require.Len(t, first, tc.days*tc.perDay)
		assert.Equal(t, first, second)
	}
}

func TestGenerateSlotsFormat(t *testing.T) {
	start := time.Date(2026, time.October, 19, 23, 59, 0, 0, time.UTC)
	slots := GenerateSlots(CatalogParams{StartDate: start, Days: 2, SlotsPerDay: 4, StartHour: 9, IntervalMinutes: 60})
	require.Len(t, slots, 8)

	assert.Equal(t, "slot_2026-10-19_09_0", slots[0].ID)
	assert.Equal(t, "19-Oct 09:00 AM", slots[0].Title)
	assert.Equal(t, "Monday, 19 Oct 2026", slots[0].Description)
	assert.Equal(t, "19-Oct 09:00 AM (Monday, 19 Oct 2026)", slots[0].Descriptor())

	assert.Equal(t, "slot_2026-10-19_12_3", slots[3].ID)
	assert.Equal(t, "19-Oct 12:00 PM", slots[3].Title)
	assert.Equal(t, "slot_2026-10-20_09_0", slots[4].ID)
	assert.Equal(t, "Tuesday, 20 Oct 2026", slots[4].Description)

	for _, slot := range slots {
		assert.True(t, IsSlotID(slot.ID), slot.ID)
		assert.Equal(t, slot.StartsAt.Format(slotTitleLayout), slot.Title)
		assert.Equal(t, slot.StartsAt.Format(slotDescriptionLayout), slot.Description)
	}
}

func TestGenerateSlotsRejectsEmptyWindow(t *testing.T) {
	assert.Empty(t, GenerateSlots(CatalogParams{StartDate: time.Now(), Days: 0, SlotsPerDay: 4}))
	assert.Empty(t, GenerateSlots(CatalogParams{StartDate: time.Now(), Days: 3, SlotsPerDay: 0}))
}

func TestIsSlotID(t *testing.T) {
	assert.True(t, IsSlotID("slot_2099-01-01_09_0"))
	assert.False(t, IsSlotID("cancel_2099-01-01_09_0"))
	assert.False(t, IsSlotID("slot_2099-01-01_9_0"))
	assert.False(t, IsSlotID("slot_tomorrow"))
	assert.False(t, IsSlotID(""))
}

func TestSlotCatalogFindUsesBookingTimezone(t *testing.T) {
	catalog, err := NewSlotCatalog(config.BookingConfig{
		Days: 3, SlotsPerDay: 4, StartHour: 9, IntervalMinutes: 60, Timezone: "Asia/Kolkata",
	})
	require.NoError(t, err)

	// 20:00 UTC is already the next day in Kolkata
	catalog.WithClock(func() time.Time { return time.Date(2026, time.October, 19, 20, 0, 0, 0, time.UTC) })

	slots := catalog.Current()
	require.Len(t, slots, 12)
	assert.Equal(t, "slot_2026-10-20_09_0", slots[0].ID)

	found, ok := catalog.Find("slot_2026-10-22_11_2")
	require.True(t, ok)
	assert.Equal(t, "22-Oct 11:00 AM", found.Title)

	_, ok = catalog.Find("slot_2099-01-01_09_0")
	assert.False(t, ok)
}

func TestNewSlotCatalogRejectsUnknownTimezone(t *testing.T) {
	_, err := NewSlotCatalog(config.BookingConfig{Days: 3, SlotsPerDay: 4, Timezone: "Mars/Olympus"})
	assert.Error(t, err)
}

func TestGenerateSlotsKeepsWallClockAcrossDST(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	for _, start := range []time.Time{
		time.Date(2026, time.March, 8, 0, 30, 0, 0, loc),    // spring forward
		time.Date(2026, time.November, 1, 0, 30, 0, 0, loc), // fall back
	} {
		slots := GenerateSlots(CatalogParams{StartDate: start, Days: 2, SlotsPerDay: 4, StartHour: 9, IntervalMinutes: 60})
		require.Len(t, slots, 8)

		date := start.Format("2006-01-02")
		assert.Equal(t, "slot_"+date+"_09_0", slots[0].ID)
		assert.Equal(t, "09:00 AM", slots[0].Title[len(slots[0].Title)-8:])
		assert.Equal(t, "slot_"+date+"_12_3", slots[3].ID)
		for i, slot := range slots {
			assert.Equal(t, 9+i%4, slot.StartsAt.Hour(), slot.ID)
			assert.Equal(t, 0, slot.StartsAt.Minute(), slot.ID)
		}
	}
}

func TestGenerateSlotsSubHourInterval(t *testing.T) {
	start := time.Date(2026, time.October, 19, 0, 0, 0, 0, time.UTC)
	slots := GenerateSlots(CatalogParams{StartDate: start, Days: 1, SlotsPerDay: 3, StartHour: 9, IntervalMinutes: 30})
	require.Len(t, slots, 3)
	assert.Equal(t, "slot_2026-10-19_09_0", slots[0].ID)
	assert.Equal(t, "slot_2026-10-19_09_1", slots[1].ID)
	assert.Equal(t, "19-Oct 09:30 AM", slots[1].Title)
	assert.Equal(t, "slot_2026-10-19_10_2", slots[2].ID)
}
