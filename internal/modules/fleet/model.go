// README: Vehicles, branches and bookings as seen by availability checks.
package fleet

import (
	"time"

	"carhire/internal/types"
)

type VehicleStatus string

const (
	VehicleAvailable VehicleStatus = "Available"
	VehicleOnHire    VehicleStatus = "On Hire"
	VehicleGrounded  VehicleStatus = "Grounded"
)

type BookingStatus string

const (
	BookingActive                BookingStatus = "Active"
	BookingAdvancePaymentNotPaid BookingStatus = "Advance Payment Not Paid"
	BookingCompleted             BookingStatus = "Completed"
	BookingCancelled             BookingStatus = "Cancelled"
)

// UnassignedBranchID collects vehicles that have no branch.
const (
	UnassignedBranchID   types.ID = "unassigned"
	UnassignedBranchName          = "Unassigned"
)

type Branch struct {
	ID   types.ID `json:"id"`
	Name string   `json:"name"`
}

type Vehicle struct {
	ID           types.ID      `json:"id"`
	CategoryID   types.ID      `json:"category_id"`
	BranchID     *types.ID     `json:"branch_id,omitempty"`
	Registration string        `json:"registration"`
	Status       VehicleStatus `json:"status"`
	PersonalUse  bool          `json:"personal_use"`
}

// Rentable reports whether the vehicle can be offered in a quote at all.
func (v Vehicle) Rentable() bool {
	return v.Status == VehicleAvailable && !v.PersonalUse
}

type Booking struct {
	ID        types.ID      `json:"id"`
	VehicleID types.ID      `json:"vehicle_id"`
	Status    BookingStatus `json:"status"`
	Start     time.Time     `json:"start"`
	End       time.Time     `json:"end"`
}

// Blocking reports whether the booking holds its vehicle.
func (b Booking) Blocking() bool {
	return b.Status == BookingActive || b.Status == BookingAdvancePaymentNotPaid
}

// Overlaps uses inclusive bounds: touching windows conflict.
func (b Booking) Overlaps(start, end time.Time) bool {
	return !start.After(b.End) && !end.Before(b.Start)
}

type BranchAvailability struct {
	BranchID       types.ID   `json:"branch_id"`
	BranchName     string     `json:"branch_name"`
	AvailableCount int        `json:"available_count"`
	VehicleIDs     []types.ID `json:"vehicle_ids"`
}

type Availability struct {
	Available bool                 `json:"available"`
	Branches  []BranchAvailability `json:"branch_availability"`
}
