// file: pkg/consensus/types.go
package consensus

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"
)

// ViewNumber identifies a single round of the consensus protocol.
type ViewNumber uint64

// Commitment is a fixed-size content hash used as an equality and map key.
// Two votes over byte-equal payloads share a commitment.
type Commitment [32]byte

func (c Commitment) String() string { return fmt.Sprintf("%x", c[:8]) }

// CommitmentOf hashes an arbitrary payload into a Commitment. Used for
// block and leaf commitments; ViewSyncData uses the domain-separated
// construction below instead.
func CommitmentOf(payload []byte) Commitment {
	return sha256.Sum256(payload)
}

// ViewSyncData is the payload view-sync votes are cast over: a relay and
// the round it is trying to bring the network to.
type ViewSyncData struct {
	RelayKey EncodedPublicKey
	Round    ViewNumber
}

// Commitment builds the ViewSyncData commitment bit-exactly per the wire
// format: domain tag "Quorum Certificate Commitment", a var-size field
// "Relay public key" (the label, the key's length as a big-endian u64, then
// the relay's encoded key), then the round as a big-endian u64, all fed into
// one SHA-256. Ported from the RawCommitmentBuilder construction in the
// original Rust source.
func (d ViewSyncData) Commitment() Commitment {
	h := sha256.New()
	h.Write([]byte("Quorum Certificate Commitment"))

	h.Write([]byte("Relay public key"))
	var lenBuf [8]byte
	binary.BigEndian.PutUint64(lenBuf[:], uint64(len(d.RelayKey)))
	h.Write(lenBuf[:])
	h.Write(d.RelayKey)

	var roundBuf [8]byte
	binary.BigEndian.PutUint64(roundBuf[:], uint64(d.Round))
	h.Write(roundBuf[:])

	var out Commitment
	copy(out[:], h.Sum(nil))
	return out
}
