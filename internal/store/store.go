package store

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/leaselane/backend/internal/models"
)

var (
	// ErrStaleVersion means the referenced version has been archived or
	// superseded by a newer version of the same logical contract.
	ErrStaleVersion = errors.New("stale contract version")
	ErrNotFound     = errors.New("contract not found")
	// ErrAlreadyActive means a create would leave two active versions for
	// one logical contract.
	ErrAlreadyActive = errors.New("contract already has an active version")
)

// Instance is one immutable snapshot of a contract. Instances are never
// updated in place; mutation archives the instance and creates a successor.
type Instance struct {
	Version    int64           `json:"version"`
	ContractID string          `json:"contractId"`
	Kind       models.Kind     `json:"kind"`
	Active     bool            `json:"active"`
	Contract   models.Contract `json:"contract"`
	CreatedAt  time.Time       `json:"createdAt"`
	ArchivedAt *time.Time      `json:"archivedAt,omitempty"`
}

func (i *Instance) Ref() models.Ref {
	return models.Ref{ContractID: i.ContractID, Version: i.Version}
}

// Store is the contract ledger: an append-only arena of instances keyed by a
// monotonically increasing version id, with a current-version pointer per
// logical contract. A single mutex serializes all transactions, which is
// what makes archive-then-create atomic.
type Store struct {
	mu          sync.Mutex
	nextVersion int64
	instances   map[int64]*Instance
	current     map[string]int64
}

func New() *Store {
	return &Store{
		nextVersion: 1,
		instances:   make(map[int64]*Instance),
		current:     make(map[string]int64),
	}
}

// Txn stages creates and archives against a snapshot of the store. Staged
// effects are applied only if the transaction function returns nil, so a
// failed operation leaves no partial mutation.
type Txn struct {
	s        *Store
	created  []*Instance
	archived []int64
}

// Transact runs fn under the store lock. All creates and archives staged by
// fn take effect together, or not at all if fn returns an error.
func (s *Store) Transact(fn func(tx *Txn) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &Txn{s: s}
	if err := fn(tx); err != nil {
		return err
	}
	tx.apply()
	return nil
}

// Get returns the instance for ref if it is the currently active version.
func (tx *Txn) Get(ref models.Ref) (*Instance, error) {
	return tx.s.getLocked(ref, tx)
}

// Create stages a new active version of the logical contract contractID.
// The contract must have no active version, or have its active version
// staged for archive in this same transaction.
func (tx *Txn) Create(contractID string, c models.Contract) (models.Ref, error) {
	if cur, ok := tx.s.current[contractID]; ok && !tx.stagedArchive(cur) {
		return models.Ref{}, fmt.Errorf("%w: %s", ErrAlreadyActive, contractID)
	}
	for _, inst := range tx.created {
		if inst.ContractID == contractID {
			return models.Ref{}, fmt.Errorf("%w: %s", ErrAlreadyActive, contractID)
		}
	}

	inst := &Instance{
		Version:    tx.s.nextVersion,
		ContractID: contractID,
		Kind:       c.Kind(),
		Active:     true,
		Contract:   c,
		CreatedAt:  time.Now().UTC(),
	}
	tx.s.nextVersion++
	tx.created = append(tx.created, inst)
	return inst.Ref(), nil
}

// Archive stages deactivation of the currently active version named by ref.
func (tx *Txn) Archive(ref models.Ref) error {
	inst, err := tx.s.getLocked(ref, tx)
	if err != nil {
		return err
	}
	tx.archived = append(tx.archived, inst.Version)
	return nil
}

func (tx *Txn) stagedArchive(version int64) bool {
	for _, v := range tx.archived {
		if v == version {
			return true
		}
	}
	return false
}

func (tx *Txn) apply() {
	now := time.Now().UTC()
	for _, v := range tx.archived {
		inst := tx.s.instances[v]
		inst.Active = false
		inst.ArchivedAt = &now
		if tx.s.current[inst.ContractID] == v {
			delete(tx.s.current, inst.ContractID)
		}
	}
	for _, inst := range tx.created {
		tx.s.instances[inst.Version] = inst
		tx.s.current[inst.ContractID] = inst.Version
	}
}

// getLocked resolves ref against committed state plus the staged effects of
// tx (which may be nil for reads outside a transaction).
func (s *Store) getLocked(ref models.Ref, tx *Txn) (*Instance, error) {
	inst, ok := s.instances[ref.Version]
	if !ok || inst.ContractID != ref.ContractID {
		return nil, fmt.Errorf("%w: %s@%d", ErrNotFound, ref.ContractID, ref.Version)
	}
	if !inst.Active || (tx != nil && tx.stagedArchive(inst.Version)) {
		return nil, fmt.Errorf("%w: %s@%d", ErrStaleVersion, ref.ContractID, ref.Version)
	}
	if s.current[ref.ContractID] != ref.Version {
		return nil, fmt.Errorf("%w: %s@%d", ErrStaleVersion, ref.ContractID, ref.Version)
	}
	return inst, nil
}

// Get returns the instance for ref if it is the currently active version of
// its logical contract. A known but superseded or archived version yields
// ErrStaleVersion.
func (s *Store) Get(ref models.Ref) (*Instance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getLocked(ref, nil)
}

// Current returns the active instance of the logical contract contractID.
func (s *Store) Current(contractID string) (*Instance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.current[contractID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, contractID)
	}
	return s.instances[v], nil
}

// Query lists the active instances visible to party, i.e. those on which it
// is signatory or observer, in creation order.
func (s *Store) Query(party models.Party) []*Instance {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*Instance
	for _, v := range s.current {
		inst := s.instances[v]
		if visibleTo(inst.Contract, party) {
			out = append(out, inst)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Version < out[j].Version })
	return out
}

func visibleTo(c models.Contract, party models.Party) bool {
	if c.Signatory() == party {
		return true
	}
	for _, o := range c.Observers() {
		if o == party {
			return true
		}
	}
	return false
}
