package domain

import (
	"errors"
	"fmt"
)

// AssetStatus is the lifecycle status of a tracked asset.
type AssetStatus string

const (
	AssetAvailable   AssetStatus = "available"
	AssetAllocated   AssetStatus = "allocated"
	AssetMaintenance AssetStatus = "maintenance"
	AssetDisposed    AssetStatus = "disposed"
	AssetLost        AssetStatus = "lost"
	AssetDamaged     AssetStatus = "damaged"
)

// AssetStatuses lists every status in display order.
var AssetStatuses = []AssetStatus{
	AssetAvailable,
	AssetAllocated,
	AssetMaintenance,
	AssetDisposed,
	AssetLost,
	AssetDamaged,
}

// Valid reports whether s is one of the known statuses.
func (s AssetStatus) Valid() bool {
	for _, v := range AssetStatuses {
		if s == v {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no lifecycle operation can leave s.
func (s AssetStatus) IsTerminal() bool {
	return s == AssetDisposed
}

// ParseAssetStatus converts a query or form value into an AssetStatus.
func ParseAssetStatus(v string) (AssetStatus, error) {
	s := AssetStatus(v)
	if !s.Valid() {
		return "", fmt.Errorf("unknown asset status %q: %w", v, ErrInvalidInput)
	}
	return s, nil
}

// AssetCondition describes the physical condition on intake.
type AssetCondition string

const (
	ConditionNew        AssetCondition = "new"
	ConditionSecondhand AssetCondition = "secondhand"
)

// Valid reports whether c is a known condition.
func (c AssetCondition) Valid() bool {
	return c == ConditionNew || c == ConditionSecondhand
}

// AssetTxType is the kind of an asset history record.
type AssetTxType string

const (
	TxReceived         AssetTxType = "received"
	TxAllocated        AssetTxType = "allocated"
	TxReturned         AssetTxType = "returned"
	TxTransfer         AssetTxType = "transfer"
	TxMaintenanceStart AssetTxType = "maintenance_start"
	TxMaintenanceEnd   AssetTxType = "maintenance_end"
	TxDisposed         AssetTxType = "disposed"
	TxReportedLost     AssetTxType = "reported_lost"
	TxReportedDamaged  AssetTxType = "reported_damaged"
)

// target describes where a rule sends the asset.
type target int

const (
	toFixed target = iota // the rule's status
	toSame                // status unchanged
	toPrior               // status held before maintenance
)

type assetRule struct {
	from   []AssetStatus
	anyBut AssetStatus
	target target
	to     AssetStatus
}

func (r assetRule) allows(s AssetStatus) bool {
	if r.anyBut != "" {
		return s != r.anyBut
	}
	for _, f := range r.from {
		if f == s {
			return true
		}
	}
	return false
}

// assetRules holds every transition an asset can take once received.
var assetRules = map[AssetTxType]assetRule{
	TxAllocated: {
		from: []AssetStatus{AssetAvailable},
		to:   AssetAllocated,
	},
	TxTransfer: {
		from:   []AssetStatus{AssetAvailable, AssetAllocated},
		target: toSame,
	},
	TxReturned: {
		from: []AssetStatus{AssetAllocated},
		to:   AssetAvailable,
	},
	TxMaintenanceStart: {
		from: []AssetStatus{AssetAvailable, AssetAllocated},
		to:   AssetMaintenance,
	},
	TxMaintenanceEnd: {
		from:   []AssetStatus{AssetMaintenance},
		target: toPrior,
	},
	TxDisposed: {
		anyBut: AssetDisposed,
		to:     AssetDisposed,
	},
	TxReportedLost: {
		from: []AssetStatus{AssetAllocated, AssetMaintenance},
		to:   AssetLost,
	},
	TxReportedDamaged: {
		from: []AssetStatus{AssetAllocated, AssetMaintenance},
		to:   AssetDamaged,
	},
}

// AssetState is the part of an asset the lifecycle rules look at.
// Status is empty until the asset has been received.
type AssetState struct {
	Status AssetStatus
	// Prior is the status held before entering maintenance.
	Prior AssetStatus
}

// Received reports whether the asset has been taken in.
func (s AssetState) Received() bool {
	return s.Status != ""
}

// Next returns the status the asset moves to when op is applied to s.
func Next(s AssetState, op AssetTxType) (AssetStatus, error) {
	if op == TxReceived {
		if s.Received() {
			return "", &TransitionError{From: s.Status, Op: op}
		}
		return AssetAvailable, nil
	}

	rule, ok := assetRules[op]
	if !ok {
		return "", fmt.Errorf("unknown asset operation %q: %w", op, ErrInvalidInput)
	}
	if !s.Received() || !rule.allows(s.Status) {
		return "", &TransitionError{From: s.Status, Op: op}
	}

	switch rule.target {
	case toSame:
		return s.Status, nil
	case toPrior:
		if s.Prior != AssetAvailable && s.Prior != AssetAllocated {
			return "", &TransitionError{From: s.Status, Op: op}
		}
		return s.Prior, nil
	default:
		return rule.to, nil
	}
}

// ReportTxType maps an exception status to the history type that records it.
func ReportTxType(s AssetStatus) (AssetTxType, error) {
	switch s {
	case AssetLost:
		return TxReportedLost, nil
	case AssetDamaged:
		return TxReportedDamaged, nil
	}
	return "", fmt.Errorf("status %q cannot be reported: %w", s, ErrInvalidInput)
}

// ErrHistoryInconsistent marks a history that cannot be replayed.
var ErrHistoryInconsistent = errors.New("asset history inconsistent")

// AssetEvent is the lifecycle content of one history record.
type AssetEvent struct {
	Type             AssetTxType
	FromStatus       AssetStatus
	ToStatus         AssetStatus
	FromDepartmentID *uint
	ToDepartmentID   *uint
	FromRoomID       *uint
	ToRoomID         *uint
	CustodianID      *uint
}

// AssetSnapshot is the current state implied by an asset history.
type AssetSnapshot struct {
	AssetState
	DepartmentID *uint
	RoomID       *uint
	CustodianID  *uint
	Events       int
}

// Replay folds events, oldest first, into the state they imply. Every event must be a
// legal transition from the state built so far and its from side must chain onto the
// previous event's to side.
func Replay(events []AssetEvent) (AssetSnapshot, error) {
	var snap AssetSnapshot
	for i, ev := range events {
		want, err := Next(snap.AssetState, ev.Type)
		if err != nil {
			return snap, fmt.Errorf("event %d (%s): %v: %w", i, ev.Type, err, ErrHistoryInconsistent)
		}
		if ev.ToStatus != want {
			return snap, fmt.Errorf("event %d (%s): recorded status %s, rules give %s: %w",
				i, ev.Type, ev.ToStatus, want, ErrHistoryInconsistent)
		}
		if i > 0 {
			if ev.FromStatus != snap.Status || !sameID(ev.FromDepartmentID, snap.DepartmentID) || !sameID(ev.FromRoomID, snap.RoomID) {
				return snap, fmt.Errorf("event %d (%s): from side does not chain: %w", i, ev.Type, ErrHistoryInconsistent)
			}
		}

		switch ev.Type {
		case TxMaintenanceStart:
			snap.Prior = snap.Status
		case TxMaintenanceEnd:
			snap.Prior = ""
		}
		snap.Status = want
		snap.DepartmentID = ev.ToDepartmentID
		snap.RoomID = ev.ToRoomID
		snap.CustodianID = ev.CustodianID
		snap.Events++
	}
	return snap, nil
}

// Matches reports whether the snapshot agrees with an asset's current fields.
func (s AssetSnapshot) Matches(status AssetStatus, departmentID, roomID, custodianID *uint) bool {
	if s.Events == 0 {
		return true
	}
	return s.Status == status &&
		sameID(s.DepartmentID, departmentID) &&
		sameID(s.RoomID, roomID) &&
		sameID(s.CustodianID, custodianID)
}

func sameID(a, b *uint) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
