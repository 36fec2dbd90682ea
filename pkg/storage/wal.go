package storage

import (
	"fmt"
	"os"
	"sync"

	"github.com/hotqc/node/pkg/consensus"
)

// WAL is an append-only audit trail of fired certificates, independent of
// the binary CertStore: operators tail it directly, it's never read back by
// the driver. NopWAL discards everything; FileWAL appends one line per
// entry to a local file.
type WAL interface {
	Append(line string)
}

type NopWAL struct{}

func NewNopWAL() *NopWAL          { return &NopWAL{} }
func (w *NopWAL) Append(_ string) {}

type FileWAL struct {
	mu sync.Mutex
	f  *os.File
}

func NewFileWAL(path string) (*FileWAL, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}
	return &FileWAL{f: f}, nil
}

func (w *FileWAL) Append(line string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	fmt.Fprintln(w.f, line)
}

// CertificateLine formats a fired certificate for the WAL, independent of
// whatever AggregateCodec its scheme uses.
func CertificateLine(view consensus.ViewNumber, cert consensus.AssembledSignature) string {
	return fmt.Sprintf("view=%d kind=%s", view, cert.Kind)
}

var _ WAL = (*NopWAL)(nil)
var _ WAL = (*FileWAL)(nil)
