// Package devcodec is the development codec: a JSON envelope format with
// content-addressed SHA-256 ids and keyed-hash "signatures". It implements
// codec.Codec so the full publish handshake can run against dev-mode nodes
// and in tests, but it provides no real cryptographic guarantees.
package devcodec

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/skifflog/skiff/internal/codec"
	"github.com/skifflog/skiff/internal/entry"
	"github.com/skifflog/skiff/internal/fieldval"
)

// Codec implements codec.Codec over canonical JSON.
// Stateless and safe for concurrent use.
type Codec struct{}

// New creates a dev codec.
func New() Codec {
	return Codec{}
}

// EncodeOperation serializes an operation to canonical JSON. The same
// operation always encodes to the same bytes, so payload hashes are stable.
func (Codec) EncodeOperation(op entry.Operation) ([]byte, error) {
	obj := map[string]any{
		"action": string(op.Action),
		"schema": op.SchemaID,
	}
	if len(op.Previous) > 0 {
		prev := make([]any, len(op.Previous))
		for i, id := range op.Previous {
			prev[i] = id
		}
		obj["previous"] = prev
	}
	if op.Fields.Len() > 0 {
		obj["fields"] = op.Fields
	}

	data, err := fieldval.MarshalCanonical(obj)
	if err != nil {
		return nil, fmt.Errorf("encode operation: %w", err)
	}
	return data, nil
}

// envelope is the dev entry wire form.
type envelope struct {
	Author      string `json:"author"`
	LogID       int64  `json:"logId"`
	SeqNum      int64  `json:"seqNum"`
	Backlink    string `json:"backlink,omitempty"`
	Skiplink    string `json:"skiplink,omitempty"`
	PayloadHash string `json:"payloadHash"`
	Signature   string `json:"signature"`
}

// SignAndEncodeEntry builds and "signs" the entry envelope for the given
// position. The returned entry hash is the content address of the envelope
// bytes and doubles as the document id for create operations.
func (Codec) SignAndEncodeEntry(payload []byte, pos entry.LogPosition, kp codec.KeyPair) ([]byte, string, error) {
	if err := pos.Validate(); err != nil {
		return nil, "", err
	}
	dk, ok := kp.(KeyPair)
	if !ok {
		return nil, "", fmt.Errorf("dev codec requires a devcodec.KeyPair, got %T", kp)
	}
	if len(payload) == 0 {
		return nil, "", fmt.Errorf("sign entry: empty operation payload")
	}

	payloadHash := hashWithDomain(domainPayload, payload)
	obj := map[string]any{
		"author":      dk.PublicKey(),
		"logId":       pos.LogID,
		"seqNum":      pos.SeqNum,
		"payloadHash": payloadHash,
		"signature":   dk.sign([]byte(payloadHash)),
	}
	if pos.Backlink != "" {
		obj["backlink"] = pos.Backlink
	}
	if pos.Skiplink != "" {
		obj["skiplink"] = pos.Skiplink
	}

	entryBytes, err := fieldval.MarshalCanonical(obj)
	if err != nil {
		return nil, "", fmt.Errorf("encode entry: %w", err)
	}
	return entryBytes, hashWithDomain(domainEntry, entryBytes), nil
}

// DecodeEntry parses entry bytes and their operation payload. The payload
// hash recorded in the envelope must match the payload bytes.
func (c Codec) DecodeEntry(entryBytes, payloadBytes []byte) (codec.Decoded, error) {
	var env envelope
	if err := json.Unmarshal(entryBytes, &env); err != nil {
		return codec.Decoded{}, fmt.Errorf("decode entry: %w", err)
	}
	if env.Author == "" || env.SeqNum < 1 {
		return codec.Decoded{}, fmt.Errorf("decode entry: malformed envelope")
	}
	if got := hashWithDomain(domainPayload, payloadBytes); got != env.PayloadHash {
		return codec.Decoded{}, fmt.Errorf("decode entry: payload hash mismatch")
	}

	op, err := decodeOperation(payloadBytes)
	if err != nil {
		return codec.Decoded{}, err
	}

	return codec.Decoded{
		Author:      env.Author,
		LogID:       env.LogID,
		SeqNum:      env.SeqNum,
		Backlink:    env.Backlink,
		Skiplink:    env.Skiplink,
		PayloadHash: env.PayloadHash,
		Operation:   op,
	}, nil
}

// EntryHash returns the content address of encoded entry bytes.
func EntryHash(entryBytes []byte) string {
	return hashWithDomain(domainEntry, entryBytes)
}

// decodeOperation parses the operation payload with a token stream so field
// insertion order survives the round trip.
func decodeOperation(payload []byte) (entry.Operation, error) {
	dec := json.NewDecoder(bytes.NewReader(payload))
	dec.UseNumber()

	if err := expectDelim(dec, '{'); err != nil {
		return entry.Operation{}, fmt.Errorf("decode operation: %w", err)
	}

	var op entry.Operation
	for dec.More() {
		key, err := stringToken(dec)
		if err != nil {
			return entry.Operation{}, fmt.Errorf("decode operation: %w", err)
		}
		switch key {
		case "action":
			s, err := stringToken(dec)
			if err != nil {
				return entry.Operation{}, fmt.Errorf("decode operation: action: %w", err)
			}
			op.Action = entry.Action(s)
		case "schema":
			s, err := stringToken(dec)
			if err != nil {
				return entry.Operation{}, fmt.Errorf("decode operation: schema: %w", err)
			}
			op.SchemaID = s
		case "previous":
			if err := dec.Decode(&op.Previous); err != nil {
				return entry.Operation{}, fmt.Errorf("decode operation: previous: %w", err)
			}
		case "fields":
			fields, err := decodeFields(dec)
			if err != nil {
				return entry.Operation{}, fmt.Errorf("decode operation: %w", err)
			}
			op.Fields = fields
		default:
			var skip json.RawMessage
			if err := dec.Decode(&skip); err != nil {
				return entry.Operation{}, fmt.Errorf("decode operation: %q: %w", key, err)
			}
		}
	}
	return op, nil
}

func decodeFields(dec *json.Decoder) (*fieldval.Map, error) {
	if err := expectDelim(dec, '{'); err != nil {
		return nil, fmt.Errorf("fields: %w", err)
	}
	m := fieldval.NewMap()
	for dec.More() {
		key, err := stringToken(dec)
		if err != nil {
			return nil, fmt.Errorf("fields: %w", err)
		}
		v, err := decodeFieldValue(dec)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", key, err)
		}
		m.Set(key, v)
	}
	if _, err := dec.Token(); err != nil { // closing brace
		return nil, fmt.Errorf("fields: %w", err)
	}
	return m, nil
}

func decodeFieldValue(dec *json.Decoder) (fieldval.Value, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	switch t := tok.(type) {
	case string:
		return fieldval.Text(t), nil
	case bool:
		return fieldval.Bool(t), nil
	case json.Number:
		return fieldval.FromJSONNumber(t)
	case json.Delim:
		switch t {
		case '{':
			return decodeRelation(dec)
		case '[':
			var list fieldval.RelationList
			for dec.More() {
				elemTok, err := dec.Token()
				if err != nil {
					return nil, err
				}
				switch et := elemTok.(type) {
				case string:
					list = append(list, fieldval.Relation{Document: et})
				case json.Delim:
					if et != '{' {
						return nil, fmt.Errorf("unexpected token %v in relation list", et)
					}
					rel, err := decodeRelation(dec)
					if err != nil {
						return nil, err
					}
					list = append(list, rel.(fieldval.Relation))
				default:
					return nil, fmt.Errorf("unexpected %T in relation list", elemTok)
				}
			}
			if _, err := dec.Token(); err != nil { // closing bracket
				return nil, err
			}
			if list == nil {
				list = fieldval.RelationList{}
			}
			return list, nil
		default:
			return nil, fmt.Errorf("unexpected delimiter %v", t)
		}
	default:
		return nil, fmt.Errorf("unsupported field value token %v", tok)
	}
}

// decodeRelation reads the members of an already-opened relation object.
func decodeRelation(dec *json.Decoder) (fieldval.Value, error) {
	var document string
	seen := false
	for dec.More() {
		key, err := stringToken(dec)
		if err != nil {
			return nil, err
		}
		val, err := stringToken(dec)
		if err != nil {
			return nil, fmt.Errorf("relation member %q: %w", key, err)
		}
		if key == "document" {
			document = val
			seen = true
		}
	}
	if _, err := dec.Token(); err != nil { // closing brace
		return nil, err
	}
	if !seen {
		return nil, fmt.Errorf("relation object missing document member")
	}
	return fieldval.Relation{Document: document}, nil
}

func expectDelim(dec *json.Decoder, want json.Delim) error {
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	d, ok := tok.(json.Delim)
	if !ok || d != want {
		return fmt.Errorf("expected %v, got %v", want, tok)
	}
	return nil
}

func stringToken(dec *json.Decoder) (string, error) {
	tok, err := dec.Token()
	if err != nil {
		return "", err
	}
	s, ok := tok.(string)
	if !ok {
		return "", fmt.Errorf("expected string, got %v", tok)
	}
	return s, nil
}
