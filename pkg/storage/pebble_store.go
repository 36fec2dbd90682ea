package storage

import (
	"fmt"

	"github.com/cockroachdb/pebble"

	"github.com/hotqc/node/pkg/consensus"
)

// PebbleCertStore is the production CertStore: Pebble-backed, durable
// across restarts. Keys: "c:<8-byte-view>" for certificates, "cp" for the
// checkpoint.
type PebbleCertStore struct {
	db *pebble.DB
}

func NewPebbleCertStore(path string) (*PebbleCertStore, error) {
	db, err := pebble.Open(path, &pebble.Options{})
	if err != nil {
		return nil, err
	}
	return &PebbleCertStore{db: db}, nil
}

func (s *PebbleCertStore) Close() error { return s.db.Close() }

func kCert(v consensus.ViewNumber) []byte { return append([]byte("c:"), viewKey(v)...) }
func kCheckpoint() []byte                 { return []byte("cp") }

func (s *PebbleCertStore) SaveCertificate(rec CertRecord) error {
	val, err := encodeGob(rec)
	if err != nil {
		return fmt.Errorf("storage: encode certificate: %w", err)
	}
	if err := s.db.Set(kCert(rec.View), val, pebble.Sync); err != nil {
		return fmt.Errorf("storage: write certificate: %w", err)
	}
	return nil
}

func (s *PebbleCertStore) GetCertificate(view consensus.ViewNumber) (CertRecord, bool) {
	val, closer, err := s.db.Get(kCert(view))
	if err != nil {
		if err == pebble.ErrNotFound {
			return CertRecord{}, false
		}
		panic(fmt.Errorf("storage: read certificate for view %d: %w", view, err))
	}
	defer closer.Close()

	var out CertRecord
	if err := decodeGob(val, &out); err != nil {
		panic(fmt.Errorf("storage: decode certificate for view %d: %w", view, err))
	}
	return out, true
}

// SetCheckpoint panics on a write failure: checkpoint persistence is
// assumed total, so a storage-layer fault here is unrecoverable rather
// than something callers can meaningfully handle.
func (s *PebbleCertStore) SetCheckpoint(view consensus.ViewNumber) {
	if err := s.db.Set(kCheckpoint(), viewKey(view), pebble.Sync); err != nil {
		panic(fmt.Errorf("storage: write checkpoint: %w", err))
	}
}

func (s *PebbleCertStore) GetCheckpoint() (consensus.ViewNumber, bool) {
	val, closer, err := s.db.Get(kCheckpoint())
	if err != nil {
		if err == pebble.ErrNotFound {
			return 0, false
		}
		panic(fmt.Errorf("storage: read checkpoint: %w", err))
	}
	defer closer.Close()

	if len(val) != 8 {
		panic(fmt.Errorf("storage: checkpoint record has %d bytes, want 8", len(val)))
	}
	var v uint64
	for _, b := range val {
		v = v<<8 | uint64(b)
	}
	return consensus.ViewNumber(v), true
}

var _ CertStore = (*PebbleCertStore)(nil)
