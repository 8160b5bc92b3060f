package timeline

import (
	"errors"
	"fmt"
	"math"

	"github.com/therealutkarshpriyadarshi/scrolly/internal/logging"
	"github.com/therealutkarshpriyadarshi/scrolly/pkg/models"
)

// MarkerState is the editing state of one region marker
type MarkerState int

// MarkerState values
const (
	StateDefault MarkerState = iota
	StateTooltip
	StateEdit
	StateDelete
)

func (s MarkerState) String() string {
	switch s {
	case StateDefault:
		return "default"
	case StateTooltip:
		return "tooltip"
	case StateEdit:
		return "edit"
	case StateDelete:
		return "delete"
	}
	return fmt.Sprintf("MarkerState(%d)", int(s))
}

// Clock exposes the current playback time
type Clock interface {
	CurrentTime() float64
}

// Editor drives the marker state machine for every region in a store.
// Marker states are session state and never persisted.
type Editor struct {
	store  *Store
	states map[models.RegionID]MarkerState
	logger *logging.Logger
}

// NewEditor creates an editor over store. A nil logger discards warnings.
func NewEditor(store *Store, logger *logging.Logger) *Editor {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Editor{
		store:  store,
		states: make(map[models.RegionID]MarkerState),
		logger: logger,
	}
}

// Store returns the store the editor mutates
func (e *Editor) Store() *Store {
	return e.store
}

// State returns the marker state of a region
func (e *Editor) State(id models.RegionID) MarkerState {
	return e.states[id]
}

// Activate opens the tooltip of a marker
func (e *Editor) Activate(id models.RegionID) error {
	if _, err := e.store.Get(id); err != nil {
		return err
	}
	return e.transition(id, StateDefault, StateTooltip)
}

// Dismiss closes an open tooltip
func (e *Editor) Dismiss(id models.RegionID) error {
	return e.transition(id, StateTooltip, StateDefault)
}

// BeginEdit opens the edit surface of a marker
func (e *Editor) BeginEdit(id models.RegionID) error {
	return e.transition(id, StateTooltip, StateEdit)
}

// BeginDelete asks for delete confirmation
func (e *Editor) BeginDelete(id models.RegionID) error {
	return e.transition(id, StateTooltip, StateDelete)
}

// ConfirmEdit commits p and returns the marker to its default state. When the
// region vanished while being edited the commit is skipped and nil returned.
func (e *Editor) ConfirmEdit(id models.RegionID, p Patch) (models.Region, error) {
	if e.State(id) != StateEdit {
		return models.Region{}, e.invalid(id, "confirm edit")
	}

	r, err := e.store.Update(id, p)
	if errors.Is(err, ErrNotFound) {
		e.logger.WithRegionID(string(id)).Warn("edit confirmed for missing region, ignoring")
		delete(e.states, id)
		return models.Region{}, nil
	}
	if err != nil {
		return models.Region{}, err
	}

	delete(e.states, id)
	e.logger.LogRegionEvent(string(id), "updated", r.StartTime)
	return r, nil
}

// ConfirmDelete removes the region. A region that is already gone is
// treated as deleted.
func (e *Editor) ConfirmDelete(id models.RegionID) error {
	if e.State(id) != StateDelete {
		return e.invalid(id, "confirm delete")
	}

	delete(e.states, id)
	if err := e.store.Remove(id); err != nil {
		if errors.Is(err, ErrNotFound) {
			e.logger.WithRegionID(string(id)).Warn("delete confirmed for missing region, ignoring")
			return nil
		}
		return err
	}
	e.logger.LogRegionEvent(string(id), "removed", 0)
	return nil
}

// Cancel leaves the edit or delete state without mutating the store
func (e *Editor) Cancel(id models.RegionID) error {
	switch e.State(id) {
	case StateEdit, StateDelete:
		delete(e.states, id)
		return nil
	}
	return e.invalid(id, "cancel")
}

// AddAtCurrentTime inserts an empty region of the given kind at the clock's
// current time, rounded to two decimals.
func (e *Editor) AddAtCurrentTime(clock Clock, kind models.RegionKind) (models.Region, error) {
	t := clock.CurrentTime()
	if math.IsNaN(t) || math.IsInf(t, 0) || t < 0 {
		t = 0
	}

	r, err := e.store.Insert(models.NewRegion("", Round2(t), kind))
	if err != nil {
		return models.Region{}, err
	}
	e.logger.LogRegionEvent(string(r.ID), "inserted", r.StartTime)
	return r, nil
}

// Prune forgets marker states of regions no longer in the store
func (e *Editor) Prune() {
	for id := range e.states {
		if _, err := e.store.Get(id); err != nil {
			delete(e.states, id)
		}
	}
}

func (e *Editor) transition(id models.RegionID, from, to MarkerState) error {
	if e.State(id) != from {
		return e.invalid(id, fmt.Sprintf("%s -> %s", from, to))
	}
	if to == StateDefault {
		delete(e.states, id)
	} else {
		e.states[id] = to
	}
	return nil
}

func (e *Editor) invalid(id models.RegionID, op string) error {
	return fmt.Errorf("%s from %s on %s: %w", op, e.State(id), id, ErrInvalidTransition)
}
