// Package codec declares the boundary to the cryptographic/binary codec.
// Signing, entry encoding, and decoding are consumed as a capability set;
// this package never implements them. See devcodec for the development
// codec used by tests, the CLI, and dev-mode nodes.
package codec

import "github.com/skifflog/skiff/internal/entry"

// KeyPair is the opaque signing identity threaded through publish calls.
type KeyPair interface {
	// PublicKey returns the author public key in its wire (hex) form.
	PublicKey() string
}

// Decoded is the result of decoding one entry together with its payload.
type Decoded struct {
	Author      string
	LogID       int64
	SeqNum      int64
	Backlink    string
	Skiplink    string
	PayloadHash string
	Operation   entry.Operation
}

// Codec is the external capability set for entry signing and serialization.
// Implementations may fail on any call; errors are surfaced to callers with
// the codec's own message attached, never swallowed.
type Codec interface {
	// EncodeOperation serializes an operation into payload bytes.
	EncodeOperation(op entry.Operation) ([]byte, error)

	// SignAndEncodeEntry signs the operation payload at the given log
	// position and returns the encoded entry bytes plus the entry hash.
	// The entry hash doubles as the document id for create operations.
	SignAndEncodeEntry(payload []byte, pos entry.LogPosition, kp KeyPair) (entryBytes []byte, entryHash string, err error)

	// DecodeEntry decodes entry bytes and their operation payload.
	DecodeEntry(entryBytes, payloadBytes []byte) (Decoded, error)
}
