package crypto

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/hotqc/node/pkg/consensus"
)

// EncodeAggregate and DecodeAggregate implement pkg/storage's
// AggregateCodec for BLSScheme: a length-prefixed signature followed by a
// length-prefixed list of the signers' marshaled public keys.

func (BLSScheme) EncodeAggregate(agg consensus.AggregatedSignature) ([]byte, error) {
	a, ok := agg.(BLSAggregate)
	if !ok {
		return nil, fmt.Errorf("crypto: not a BLS aggregate: %T", agg)
	}

	var buf bytes.Buffer
	writeChunk(&buf, a.Signature)

	var countBuf [4]byte
	binary.BigEndian.PutUint32(countBuf[:], uint32(len(a.Signers)))
	buf.Write(countBuf[:])

	for _, pk := range a.Signers {
		b, err := pk.MarshalBinary()
		if err != nil {
			return nil, fmt.Errorf("crypto: marshal signer key: %w", err)
		}
		writeChunk(&buf, b)
	}
	return buf.Bytes(), nil
}

func (BLSScheme) DecodeAggregate(data []byte) (consensus.AggregatedSignature, error) {
	r := bytes.NewReader(data)

	sig, err := readChunk(r)
	if err != nil {
		return nil, fmt.Errorf("crypto: read aggregate signature: %w", err)
	}

	var count uint32
	if err := binary.Read(r, binary.BigEndian, &count); err != nil {
		return nil, fmt.Errorf("crypto: read signer count: %w", err)
	}

	signers := make([]*BLSPubKey, count)
	for i := range signers {
		b, err := readChunk(r)
		if err != nil {
			return nil, fmt.Errorf("crypto: read signer key %d: %w", i, err)
		}
		pk := new(BLSPubKey)
		if err := pk.UnmarshalBinary(b); err != nil {
			return nil, fmt.Errorf("crypto: unmarshal signer key %d: %w", i, err)
		}
		signers[i] = pk
	}

	return BLSAggregate{Signature: sig, Signers: signers}, nil
}

func writeChunk(buf *bytes.Buffer, b []byte) {
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(b)))
	buf.Write(lenBuf[:])
	buf.Write(b)
}

func readChunk(r io.Reader) ([]byte, error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return nil, err
	}
	n := binary.BigEndian.Uint32(lenBuf[:])
	b := make([]byte, n)
	if _, err := io.ReadFull(r, b); err != nil {
		return nil, err
	}
	return b, nil
}

// EncodeAggregate and DecodeAggregate implement pkg/storage's
// AggregateCodec for LocalTestScheme: the aggregate is already raw bytes.

func (LocalTestScheme) EncodeAggregate(agg consensus.AggregatedSignature) ([]byte, error) {
	b, ok := agg.([]byte)
	if !ok {
		return nil, fmt.Errorf("crypto: not a local test aggregate: %T", agg)
	}
	return b, nil
}

func (LocalTestScheme) DecodeAggregate(data []byte) (consensus.AggregatedSignature, error) {
	return data, nil
}
