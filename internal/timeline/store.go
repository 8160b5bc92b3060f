// Package timeline holds the ordered region store, the progress mapping,
// active region resolution and the author-facing marker editor.
package timeline

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"

	"github.com/google/uuid"
	"github.com/therealutkarshpriyadarshi/scrolly/pkg/models"
)

// Store keeps regions in ascending startTime order. Regions with equal
// startTime keep the order they were inserted in.
//
// A Store has a single writer and is not safe for concurrent use.
type Store struct {
	regions []models.Region
}

func positionID(i int, taken map[models.RegionID]struct{}) models.RegionID {
	name := strconv.Itoa(i)
	for {
		id := models.RegionID(uuid.NewSHA1(loadNamespace, []byte(name)).String())
		if _, ok := taken[id]; !ok {
			return id
		}
		name += "'"
	}
}

// NewStore creates an empty store
func NewStore() *Store {
	return &Store{}
}

// loadNamespace seeds the ids of regions persisted without one
var loadNamespace = uuid.MustParse("5b0d7a4e-3c1f-4f7e-9a43-6f0c2d8e1b57")

// Load builds a store from a persisted sequence. Persisted order breaks ties.
// Regions without an id get a transient one derived from their persisted
// position, so loading the same sequence twice yields the same ids. Transient
// ids are not written back until PersistIDs is called.
func Load(regions []models.Region) (*Store, error) {
	s := &Store{regions: make([]models.Region, 0, len(regions))}
	seen := make(map[models.RegionID]struct{}, len(regions))

	explicit := make(map[models.RegionID]struct{}, len(regions))
	for _, r := range regions {
		if r.ID != "" {
			explicit[r.ID] = struct{}{}
		}
	}

	for i, r := range regions {
		if err := validateStart(r.StartTime); err != nil {
			return nil, fmt.Errorf("region %d: %w", i, err)
		}
		r = r.Clone()
		if r.ID == "" {
			r.AssignTransientID(positionID(i, explicit))
		}
		if _, dup := seen[r.ID]; dup {
			return nil, fmt.Errorf("region %d: duplicate id %s: %w", i, r.ID, ErrInvalidRegion)
		}
		seen[r.ID] = struct{}{}
		s.regions = append(s.regions, r)
	}

	sort.SliceStable(s.regions, func(i, j int) bool {
		return s.regions[i].StartTime < s.regions[j].StartTime
	})
	return s, nil
}

// Insert adds a region after every region whose startTime is less than or
// equal to its own. An empty ID is replaced with a new UUID.
func (s *Store) Insert(r models.Region) (models.Region, error) {
	if err := validateStart(r.StartTime); err != nil {
		return models.Region{}, err
	}
	if r.ID == "" {
		r.ID = models.RegionID(uuid.New().String())
	} else if s.indexOf(r.ID) >= 0 {
		return models.Region{}, fmt.Errorf("duplicate id %s: %w", r.ID, ErrInvalidRegion)
	}

	r = r.Clone()
	if r.Fields == nil {
		r.Fields = make(map[string]json.RawMessage)
	}
	s.insertSorted(r)
	return r.Clone(), nil
}

// Patch describes a change to a stored region. A nil StartTime keeps the
// current position.
type Patch struct {
	StartTime *float64
	Set       map[string]json.RawMessage
	Unset     []string
}

// Update applies p to the region with the given id. A changed startTime
// moves the region behind any regions already sharing the new startTime.
func (s *Store) Update(id models.RegionID, p Patch) (models.Region, error) {
	i := s.indexOf(id)
	if i < 0 {
		return models.Region{}, fmt.Errorf("update %s: %w", id, ErrNotFound)
	}
	if p.StartTime != nil {
		if err := validateStart(*p.StartTime); err != nil {
			return models.Region{}, err
		}
	}
	for k, v := range p.Set {
		if !json.Valid(v) {
			return models.Region{}, fmt.Errorf("field %s is not valid JSON: %w", k, ErrInvalidRegion)
		}
	}

	r := s.regions[i].Clone()
	if r.Fields == nil {
		r.Fields = make(map[string]json.RawMessage)
	}
	for k, v := range p.Set {
		r.Fields[k] = append(json.RawMessage(nil), v...)
	}
	for _, k := range p.Unset {
		delete(r.Fields, k)
	}

	if p.StartTime == nil || *p.StartTime == r.StartTime {
		s.regions[i] = r
		return r.Clone(), nil
	}

	r.StartTime = *p.StartTime
	s.regions = append(s.regions[:i], s.regions[i+1:]...)
	s.insertSorted(r)
	return r.Clone(), nil
}

// Replace swaps the payload of a region for r's, keeping r's startTime
func (s *Store) Replace(r models.Region) (models.Region, error) {
	i := s.indexOf(r.ID)
	if i < 0 {
		return models.Region{}, fmt.Errorf("replace %s: %w", r.ID, ErrNotFound)
	}
	start := r.StartTime
	fields := make(map[string]json.RawMessage, len(r.Fields))
	for k, v := range r.Fields {
		fields[k] = v
	}
	unset := make([]string, 0)
	for k := range s.regions[i].Fields {
		if _, ok := fields[k]; !ok {
			unset = append(unset, k)
		}
	}
	return s.Update(r.ID, Patch{StartTime: &start, Set: fields, Unset: unset})
}

// Remove deletes the region with the given id
func (s *Store) Remove(id models.RegionID) error {
	i := s.indexOf(id)
	if i < 0 {
		return fmt.Errorf("remove %s: %w", id, ErrNotFound)
	}
	s.regions = append(s.regions[:i], s.regions[i+1:]...)
	return nil
}

// Get returns a copy of the region with the given id
func (s *Store) Get(id models.RegionID) (models.Region, error) {
	i := s.indexOf(id)
	if i < 0 {
		return models.Region{}, fmt.Errorf("get %s: %w", id, ErrNotFound)
	}
	return s.regions[i].Clone(), nil
}

// List returns a snapshot of the ordered regions
func (s *Store) List() []models.Region {
	out := make([]models.Region, len(s.regions))
	for i, r := range s.regions {
		out[i] = r.Clone()
	}
	return out
}

// PersistIDs turns every transient id into a persisted one
func (s *Store) PersistIDs() {
	for i := range s.regions {
		s.regions[i].PersistID()
	}
}

// Len returns the number of regions
func (s *Store) Len() int {
	return len(s.regions)
}

func (s *Store) insertSorted(r models.Region) {
	// upper bound keeps equal startTimes in insertion order
	i := sort.Search(len(s.regions), func(i int) bool {
		return s.regions[i].StartTime > r.StartTime
	})
	s.regions = append(s.regions, models.Region{})
	copy(s.regions[i+1:], s.regions[i:])
	s.regions[i] = r
}

func (s *Store) indexOf(id models.RegionID) int {
	for i := range s.regions {
		if s.regions[i].ID == id {
			return i
		}
	}
	return -1
}

func validateStart(v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return fmt.Errorf("startTime %v is not finite: %w", v, ErrInvalidRegion)
	}
	if v < 0 {
		return fmt.Errorf("startTime %v is negative: %w", v, ErrInvalidRegion)
	}
	return nil
}
