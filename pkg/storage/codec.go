package storage

import (
	"bytes"
	"encoding/binary"
	"encoding/gob"

	"github.com/hotqc/node/pkg/consensus"
)

func init() {
	gob.Register(CertRecord{})
}

// CertRecord is the durable form of a fired certificate: the scheme-opaque
// AggregatedSignature is reduced to bytes by an AggregateCodec before it
// ever reaches this struct, so storage never needs to know which signature
// scheme produced it.
type CertRecord struct {
	View         consensus.ViewNumber
	Kind         consensus.VoteKind
	Commitment   consensus.Commitment
	RawAggregate []byte
}

// AggregateCodec turns a scheme's opaque AggregatedSignature into bytes and
// back. The signature capability (pkg/crypto) implements this; storage only
// consumes it, matching the rest of the core's collaborator-by-interface
// pattern.
type AggregateCodec interface {
	EncodeAggregate(consensus.AggregatedSignature) ([]byte, error)
	DecodeAggregate([]byte) (consensus.AggregatedSignature, error)
}

func encodeGob(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decodeGob(b []byte, v any) error {
	return gob.NewDecoder(bytes.NewReader(b)).Decode(v)
}

func viewKey(v consensus.ViewNumber) []byte {
	var k [8]byte
	binary.BigEndian.PutUint64(k[:], uint64(v))
	return k[:]
}
