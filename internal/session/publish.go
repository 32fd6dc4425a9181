package session

import (
	"context"

	"github.com/skifflog/skiff/internal/codec"
	"github.com/skifflog/skiff/internal/entry"
)

// publish runs the publish handshake for one operation:
//
//	RESOLVE_POSITION -> SIGN_AND_ENCODE -> TRANSMIT -> CACHE_UPDATE -> DONE
//
// Any failure before CACHE_UPDATE leaves the position cache in its pre-call
// state: a position consumed from the cache is put back, and nothing
// partial is ever stored. A cached position therefore always reflects a
// fully committed remote state transition.
//
// For a create the request is keyed by schema id but every later operation
// keys off the new document id, so the cache update deliberately stores
// under the entry hash instead of the request target.
func (s *Session) publish(ctx context.Context, kp codec.KeyPair, target string, op entry.Operation) ([]byte, error) {
	author := kp.PublicKey()
	log := s.logger.With(
		"token", s.tokens.Generate(),
		"action", string(op.Action),
		"target", target,
	)

	unlock := s.locks.Lock(author, target)
	defer unlock()

	// RESOLVE_POSITION
	pos, cached := s.positions.Get(author, target)
	if cached {
		log.Debug("position resolved from cache", "seqNum", pos.SeqNum, "logId", pos.LogID)
	} else {
		var err error
		pos, err = s.node.NextPosition(ctx, author, target)
		if err != nil {
			return nil, &ProtocolError{
				Code:    ErrCodePositionUnavailable,
				Message: "next-position query failed",
				Author:  author,
				Target:  target,
				Err:     err,
			}
		}
		if err := pos.Validate(); err != nil {
			return nil, &ProtocolError{
				Code:    ErrCodePositionUnavailable,
				Message: "node returned malformed position",
				Author:  author,
				Target:  target,
				Err:     err,
			}
		}
		log.Debug("position resolved from node", "seqNum", pos.SeqNum, "logId", pos.LogID)
	}

	// Restores the consumed position on failure. Safe: the node accepted
	// nothing, so the backlink is still unused.
	restore := func() {
		if cached {
			s.positions.Set(author, target, pos)
		}
	}

	// SIGN_AND_ENCODE
	payload, err := s.codec.EncodeOperation(op)
	if err != nil {
		restore()
		return nil, &ProtocolError{
			Code:    ErrCodeSigningFailed,
			Message: "operation encoding failed",
			Author:  author,
			Target:  target,
			Err:     err,
		}
	}
	entryBytes, entryHash, err := s.codec.SignAndEncodeEntry(payload, pos, kp)
	if err != nil {
		restore()
		return nil, &ProtocolError{
			Code:    ErrCodeSigningFailed,
			Message: "entry signing failed",
			Author:  author,
			Target:  target,
			Err:     err,
		}
	}

	// TRANSMIT
	next, err := s.node.Publish(ctx, entryBytes, payload)
	if err != nil {
		restore()
		return nil, &ProtocolError{
			Code:    ErrCodeTransmitFailed,
			Message: "publish transmission failed",
			Author:  author,
			Target:  target,
			Err:     err,
		}
	}

	// CACHE_UPDATE
	cacheTarget := target
	if op.Action == entry.ActionCreate {
		cacheTarget = entryHash
	}
	s.positions.Set(author, cacheTarget, next)

	if s.archive != nil {
		if err := s.archive.RecordPublished(ctx, author, op.SchemaID, entryHash, pos, entryBytes, payload); err != nil {
			log.Warn("archive write failed", "entryHash", entryHash, "err", err)
		}
	}

	log.Debug("entry published", "entryHash", entryHash, "seqNum", pos.SeqNum)
	return entryBytes, nil
}
