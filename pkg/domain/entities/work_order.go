package entities

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// WorkOrderState represents the execution state of a single routing operation
type WorkOrderState int

const (
	WorkOrderPending WorkOrderState = iota
	WorkOrderReady
	WorkOrderProgress
	WorkOrderDone
	WorkOrderCancel
)

// String method for WorkOrderState enum
func (s WorkOrderState) String() string {
	switch s {
	case WorkOrderPending:
		return "pending"
	case WorkOrderReady:
		return "ready"
	case WorkOrderProgress:
		return "progress"
	case WorkOrderDone:
		return "done"
	case WorkOrderCancel:
		return "cancel"
	default:
		return "unknown"
	}
}

// ParseWorkOrderState parses the textual form produced by String
func ParseWorkOrderState(s string) (WorkOrderState, error) {
	for _, state := range []WorkOrderState{WorkOrderPending, WorkOrderReady, WorkOrderProgress, WorkOrderDone, WorkOrderCancel} {
		if state.String() == s {
			return state, nil
		}
	}
	return WorkOrderPending, fmt.Errorf("unknown work order state %q", s)
}

func (s WorkOrderState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *WorkOrderState) UnmarshalText(text []byte) error {
	parsed, err := ParseWorkOrderState(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// IsFinished reports whether the work order no longer blocks its successors
func (s WorkOrderState) IsFinished() bool {
	return s == WorkOrderDone || s == WorkOrderCancel
}

// ActivityType identifies an operator action on a work order
type ActivityType int

const (
	ActivityStart ActivityType = iota
	ActivityPause
	ActivityResume
	ActivityComplete
	ActivityScrap
	ActivityCancel
)

// String method for ActivityType enum
func (t ActivityType) String() string {
	switch t {
	case ActivityStart:
		return "start"
	case ActivityPause:
		return "pause"
	case ActivityResume:
		return "resume"
	case ActivityComplete:
		return "complete"
	case ActivityScrap:
		return "scrap"
	case ActivityCancel:
		return "cancel"
	default:
		return "unknown"
	}
}

// ParseActivityType parses the textual form produced by String
func ParseActivityType(s string) (ActivityType, error) {
	for _, t := range []ActivityType{ActivityStart, ActivityPause, ActivityResume, ActivityComplete, ActivityScrap, ActivityCancel} {
		if t.String() == s {
			return t, nil
		}
	}
	return ActivityStart, fmt.Errorf("unknown activity type %q", s)
}

func (t ActivityType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t *ActivityType) UnmarshalText(text []byte) error {
	parsed, err := ParseActivityType(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// OperatorActivity is one append-only entry of a work order's audit trail.
// Seq is monotonic within the work order.
type OperatorActivity struct {
	ID         string          `json:"id"`
	Seq        int             `json:"seq"`
	Type       ActivityType    `json:"type"`
	OperatorID string          `json:"operator_id,omitempty"`
	At         time.Time       `json:"at"`
	Qty        decimal.Decimal `json:"qty"`
	ScrapQty   decimal.Decimal `json:"scrap_qty"`
	Reason     string          `json:"reason,omitempty"`
}

// Interval is a closed-open span of time
type Interval struct {
	Start time.Time
	End   time.Time
}

// Overlap returns how much of the interval falls within [from, to)
func (iv Interval) Overlap(from, to time.Time) time.Duration {
	start, end := iv.Start, iv.End
	if start.Before(from) {
		start = from
	}
	if end.After(to) {
		end = to
	}
	if !end.After(start) {
		return 0
	}
	return end.Sub(start)
}

// WorkOrder executes one routing operation for its manufacturing order
type WorkOrder struct {
	ID               string              `json:"id"`
	MOID             string              `json:"mo_id"`
	OperationID      string              `json:"operation_id"`
	OperationName    string              `json:"operation_name"`
	WorkCenterID     string              `json:"workcenter_id"`
	Sequence         int                 `json:"sequence"`
	State            WorkOrderState      `json:"state"`
	QtyProduced      decimal.Decimal     `json:"qty_produced"`
	QtyScrapped      decimal.Decimal     `json:"qty_scrapped"`
	CycleTime        decimal.Decimal     `json:"cycle_time"`
	BatchSize        decimal.Decimal     `json:"batch_size"`
	ExpectedDuration time.Duration       `json:"expected_duration"`
	Duration         time.Duration       `json:"duration"`
	IsUserWorking    bool                `json:"is_user_working"`
	Activities       []*OperatorActivity `json:"activities"`
	DateStart        *time.Time          `json:"date_start,omitempty"`
	DateFinished     *time.Time          `json:"date_finished,omitempty"`
}

// NewWorkOrder creates a pending work order for a routing operation
func NewWorkOrder(moID string, op Operation, qty decimal.Decimal, wc *WorkCenter) *WorkOrder {
	return &WorkOrder{
		ID:               uuid.NewString(),
		MOID:             moID,
		OperationID:      op.ID,
		OperationName:    op.Name,
		WorkCenterID:     op.WorkCenterID,
		Sequence:         op.Sequence,
		State:            WorkOrderPending,
		QtyProduced:      decimal.Zero,
		QtyScrapped:      decimal.Zero,
		CycleTime:        op.CycleTime,
		BatchSize:        op.BatchSize,
		ExpectedDuration: MinutesToDuration(op.ExpectedMinutes(qty, wc)),
	}
}

func (wo *WorkOrder) stateLabel() string {
	if wo.State == WorkOrderProgress && !wo.IsUserWorking {
		return "paused"
	}
	return wo.State.String()
}

func (wo *WorkOrder) invalid(requested string) error {
	return NewInvalidStateError("work order", wo.ID, wo.stateLabel(), requested)
}

func (wo *WorkOrder) appendActivity(t ActivityType, operatorID string, at time.Time) *OperatorActivity {
	seq := 1
	if n := len(wo.Activities); n > 0 {
		seq = wo.Activities[n-1].Seq + 1
	}
	a := &OperatorActivity{
		ID:         uuid.NewString(),
		Seq:        seq,
		Type:       t,
		OperatorID: operatorID,
		At:         at,
		Qty:        decimal.Zero,
		ScrapQty:   decimal.Zero,
	}
	wo.Activities = append(wo.Activities, a)
	return a
}

// Start moves a pending or ready work order to progress. Predecessor checks belong to the owning order.
func (wo *WorkOrder) Start(operatorID string, at time.Time) error {
	if wo.State != WorkOrderPending && wo.State != WorkOrderReady {
		return wo.invalid(WorkOrderProgress.String())
	}
	wo.State = WorkOrderProgress
	wo.IsUserWorking = true
	wo.DateStart = &at
	wo.appendActivity(ActivityStart, operatorID, at)
	return nil
}

// Pause stops the active interval. The state label stays progress.
func (wo *WorkOrder) Pause(operatorID, reason string, at time.Time) error {
	if wo.State != WorkOrderProgress || !wo.IsUserWorking {
		return wo.invalid("paused")
	}
	wo.IsUserWorking = false
	a := wo.appendActivity(ActivityPause, operatorID, at)
	a.Reason = reason
	return nil
}

// Resume opens a new active interval after a pause
func (wo *WorkOrder) Resume(operatorID string, at time.Time) error {
	if wo.State != WorkOrderProgress || wo.IsUserWorking {
		return wo.invalid("resumed")
	}
	wo.IsUserWorking = true
	wo.appendActivity(ActivityResume, operatorID, at)
	return nil
}

// Complete finishes the work order and freezes its duration from the activity log
func (wo *WorkOrder) Complete(operatorID string, qtyProduced, qtyScrapped decimal.Decimal, at time.Time) error {
	if qtyProduced.IsNegative() {
		return NewValidationError("qty_produced", "must not be negative, got %s", qtyProduced)
	}
	if qtyScrapped.IsNegative() {
		return NewValidationError("qty_scrapped", "must not be negative, got %s", qtyScrapped)
	}
	if wo.State != WorkOrderProgress {
		return wo.invalid(WorkOrderDone.String())
	}

	a := wo.appendActivity(ActivityComplete, operatorID, at)
	a.Qty = qtyProduced
	a.ScrapQty = qtyScrapped

	wo.State = WorkOrderDone
	wo.IsUserWorking = false
	wo.QtyProduced = qtyProduced
	wo.QtyScrapped = wo.QtyScrapped.Add(qtyScrapped)
	wo.DateFinished = &at
	wo.Duration = wo.ActiveTime(at)
	return nil
}

// RecordScrap adds scrapped quantity without changing state
func (wo *WorkOrder) RecordScrap(operatorID string, qty decimal.Decimal, reason string, at time.Time) error {
	if qty.LessThanOrEqual(decimal.Zero) {
		return NewValidationError("qty", "must be positive, got %s", qty)
	}
	if wo.State != WorkOrderProgress {
		return wo.invalid("scrap")
	}
	a := wo.appendActivity(ActivityScrap, operatorID, at)
	a.Qty = qty
	a.Reason = reason
	wo.QtyScrapped = wo.QtyScrapped.Add(qty)
	return nil
}

// Cancel closes the work order. A started one gets a closing activity so its intervals
// stop at the cancellation time.
func (wo *WorkOrder) Cancel(operatorID string, at time.Time) {
	if wo.State.IsFinished() {
		return
	}
	if wo.State == WorkOrderProgress {
		wo.appendActivity(ActivityCancel, operatorID, at)
		wo.Duration = wo.ActiveTime(at)
		wo.DateFinished = &at
	}
	wo.State = WorkOrderCancel
	wo.IsUserWorking = false
}

// Intervals splits the activity log into active and paused spans. Spans still open are closed at now.
func (wo *WorkOrder) Intervals(now time.Time) (active, paused []Interval) {
	activities := make([]*OperatorActivity, len(wo.Activities))
	copy(activities, wo.Activities)
	sort.Slice(activities, func(i, j int) bool { return activities[i].Seq < activities[j].Seq })

	var runningSince, pausedSince *time.Time
	for _, a := range activities {
		at := a.At
		switch a.Type {
		case ActivityStart, ActivityResume:
			if pausedSince != nil {
				paused = append(paused, Interval{Start: *pausedSince, End: at})
				pausedSince = nil
			}
			if runningSince == nil {
				runningSince = &at
			}
		case ActivityPause:
			if runningSince != nil {
				active = append(active, Interval{Start: *runningSince, End: at})
				runningSince = nil
			}
			pausedSince = &at
		case ActivityComplete, ActivityCancel:
			if runningSince != nil {
				active = append(active, Interval{Start: *runningSince, End: at})
				runningSince = nil
			}
			if pausedSince != nil {
				paused = append(paused, Interval{Start: *pausedSince, End: at})
				pausedSince = nil
			}
		}
	}
	if runningSince != nil && now.After(*runningSince) {
		active = append(active, Interval{Start: *runningSince, End: now})
	}
	if pausedSince != nil && now.After(*pausedSince) {
		paused = append(paused, Interval{Start: *pausedSince, End: now})
	}
	return active, paused
}

// ActiveTime sums the active intervals, excluding paused time
func (wo *WorkOrder) ActiveTime(now time.Time) time.Duration {
	active, _ := wo.Intervals(now)
	var total time.Duration
	for _, iv := range active {
		total += iv.End.Sub(iv.Start)
	}
	return total
}

// Clone returns a deep copy of the work order
func (wo *WorkOrder) Clone() *WorkOrder {
	c := *wo
	c.DateStart = cloneTime(wo.DateStart)
	c.DateFinished = cloneTime(wo.DateFinished)
	c.Activities = make([]*OperatorActivity, len(wo.Activities))
	for i, a := range wo.Activities {
		ac := *a
		c.Activities[i] = &ac
	}
	return &c
}
