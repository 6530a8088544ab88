package memory

import (
	"context"
	"sort"
	"sync"

	"ricarica/internal/core"
)

// Store is the in-memory table store: the default backend and the test
// double for the remote one.
type Store struct {
	mu        sync.Mutex
	vehicles  []core.Vehicle
	suppliers []core.Supplier
	sessions  []core.ChargeSession
	settings  *core.Settings
	nextID    int64
}

func New() *Store {
	s := &Store{nextID: 1}
	// Every installation starts with the protected home supplier.
	s.suppliers = append(s.suppliers, core.Supplier{
		ID:   s.allocID(),
		Name: core.HomeSupplierName,
		Type: core.SupplierAC,
		Kind: core.SupplierHome,
	})
	return s
}

func (s *Store) allocID() int64 {
	id := s.nextID
	s.nextID++
	return id
}

func (s *Store) ListVehicles(_ context.Context) ([]core.Vehicle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.Vehicle(nil), s.vehicles...), nil
}

func (s *Store) InsertVehicle(_ context.Context, v core.Vehicle) (core.Vehicle, error) {
	if err := v.Validate(); err != nil {
		return core.Vehicle{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	v.ID = s.allocID()
	s.vehicles = append(s.vehicles, v)
	return v, nil
}

func (s *Store) DeleteVehicle(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, v := range s.vehicles {
		if v.ID == id {
			s.vehicles = append(s.vehicles[:i], s.vehicles[i+1:]...)
			return nil
		}
	}
	return core.NotFound("vehicle", id)
}

func (s *Store) ListSuppliers(_ context.Context) ([]core.Supplier, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.Supplier(nil), s.suppliers...), nil
}

func (s *Store) InsertSupplier(_ context.Context, sp core.Supplier) (core.Supplier, error) {
	if err := sp.Validate(); err != nil {
		return core.Supplier{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	sp.ID = s.allocID()
	s.suppliers = append(s.suppliers, sp)
	return sp, nil
}

func (s *Store) UpdateSupplier(_ context.Context, sp core.Supplier) error {
	if err := sp.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, cur := range s.suppliers {
		if cur.ID == sp.ID {
			s.suppliers[i] = sp
			return nil
		}
	}
	return core.NotFound("supplier", sp.ID)
}

func (s *Store) DeleteSupplier(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, sp := range s.suppliers {
		if sp.ID == id {
			s.suppliers = append(s.suppliers[:i], s.suppliers[i+1:]...)
			return nil
		}
	}
	return core.NotFound("supplier", id)
}

func (s *Store) ListSessions(_ context.Context) ([]core.ChargeSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sortedSessionsLocked(0), nil
}

func (s *Store) ListVehicleSessions(_ context.Context, vehicleID int64) ([]core.ChargeSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sortedSessionsLocked(vehicleID), nil
}

// sortedSessionsLocked returns a copy ordered by date descending, filtered
// to one vehicle when vehicleID is non-zero.
func (s *Store) sortedSessionsLocked(vehicleID int64) []core.ChargeSession {
	out := make([]core.ChargeSession, 0, len(s.sessions))
	for _, c := range s.sessions {
		if vehicleID == 0 || c.VehicleID == vehicleID {
			out = append(out, c)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Date.After(out[j].Date)
	})
	return out
}

func (s *Store) GetSession(_ context.Context, id int64) (core.ChargeSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.sessions {
		if c.ID == id {
			return c, nil
		}
	}
	return core.ChargeSession{}, core.NotFound("session", id)
}

func (s *Store) InsertSession(_ context.Context, c core.ChargeSession) (core.ChargeSession, error) {
	if err := c.Validate(); err != nil {
		return core.ChargeSession{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	c.ID = s.allocID()
	s.sessions = append(s.sessions, c)
	return c, nil
}

func (s *Store) UpdateSession(_ context.Context, c core.ChargeSession) error {
	if err := c.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, cur := range s.sessions {
		if cur.ID == c.ID {
			s.sessions[i] = c
			return nil
		}
	}
	return core.NotFound("session", c.ID)
}

func (s *Store) DeleteSession(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, c := range s.sessions {
		if c.ID == id {
			s.sessions = append(s.sessions[:i], s.sessions[i+1:]...)
			return nil
		}
	}
	return core.NotFound("session", id)
}

func (s *Store) LoadSettings(_ context.Context) (core.Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.settings == nil {
		return core.DefaultSettings(), nil
	}
	return *s.settings, nil
}

func (s *Store) SaveSettings(_ context.Context, st core.Settings) error {
	if err := st.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := st
	s.settings = &cp
	return nil
}
