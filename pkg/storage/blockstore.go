package storage

import (
	"sync"

	"github.com/hotqc/node/pkg/consensus"
)

// CertStore persists fired certificates and the highest view checkpointed
// so far. It is one of the driver's CertSink collaborators, providing
// durability; the network broadcaster is another.
type CertStore interface {
	SaveCertificate(rec CertRecord) error
	GetCertificate(view consensus.ViewNumber) (CertRecord, bool)
	SetCheckpoint(view consensus.ViewNumber)
	GetCheckpoint() (consensus.ViewNumber, bool)
}

// InMemoryCertStore is the in-test/devnet implementation: no durability
// across restarts, just the same map-backed shape as PebbleCertStore so
// tests can swap one for the other freely.
type InMemoryCertStore struct {
	mu         sync.Mutex
	certByView map[consensus.ViewNumber]CertRecord
	checkpoint *consensus.ViewNumber
}

func NewInMemoryCertStore() *InMemoryCertStore {
	return &InMemoryCertStore{certByView: make(map[consensus.ViewNumber]CertRecord)}
}

func (s *InMemoryCertStore) SaveCertificate(rec CertRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.certByView[rec.View] = rec
	return nil
}

func (s *InMemoryCertStore) GetCertificate(view consensus.ViewNumber) (CertRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.certByView[view]
	return rec, ok
}

func (s *InMemoryCertStore) SetCheckpoint(view consensus.ViewNumber) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v := view
	s.checkpoint = &v
}

func (s *InMemoryCertStore) GetCheckpoint() (consensus.ViewNumber, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.checkpoint == nil {
		return 0, false
	}
	return *s.checkpoint, true
}

var _ CertStore = (*InMemoryCertStore)(nil)
