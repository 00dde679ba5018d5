package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/you/storefront/domain"
)

// SessionKey is the single logical key the session blob is stored under
const SessionKey = "session"

// PersistenceAdapterImpl implements domain.PersistenceAdapter over a durable
// and an ephemeral domain.SessionStore. Storage failures never reach the
// caller: they are logged and treated as "no session".
type PersistenceAdapterImpl struct {
	durable   domain.SessionStore
	ephemeral domain.SessionStore
	logger    *zap.Logger
}

// NewPersistenceAdapter creates a new persistence adapter
func NewPersistenceAdapter(durable, ephemeral domain.SessionStore, logger *zap.Logger) domain.PersistenceAdapter {
	return &PersistenceAdapterImpl{
		durable:   durable,
		ephemeral: ephemeral,
		logger:    logger.Named("persistence"),
	}
}

func (p *PersistenceAdapterImpl) store(backend domain.StorageBackend) domain.SessionStore {
	if backend == domain.BackendDurable {
		return p.durable
	}
	return p.ephemeral
}

// Save implements domain.PersistenceAdapter. The blob ends up in at most one
// store and every other store is cleared, so an older session can never be
// restored in its place. A failed write falls back to the other store.
func (p *PersistenceAdapterImpl) Save(ctx context.Context, session domain.StoredSession, remember bool) {
	data, err := json.Marshal(session)
	if err != nil {
		p.logger.Error("failed to encode session", zap.Error(err))
		p.Clear(ctx)
		return
	}

	target, other := domain.BackendEphemeral, domain.BackendDurable
	if remember {
		target, other = domain.BackendDurable, domain.BackendEphemeral
	}

	err = p.store(target).Set(ctx, SessionKey, data)
	if err == nil {
		p.delete(ctx, other)
		return
	}

	// The failed store may still hold a previous session.
	p.logger.Warn("session write failed, falling back",
		zap.Stringer("backend", target),
		zap.Stringer("fallback", other),
		zap.Error(err))
	p.delete(ctx, target)

	if err := p.store(other).Set(ctx, SessionKey, data); err != nil {
		p.logger.Error("failed to persist session in fallback store", zap.Stringer("backend", other), zap.Error(err))
		p.delete(ctx, other)
	}
}

// Restore implements domain.PersistenceAdapter
func (p *PersistenceAdapterImpl) Restore(ctx context.Context) (*domain.StoredSession, bool) {
	for _, backend := range []domain.StorageBackend{domain.BackendDurable, domain.BackendEphemeral} {
		if session, ok := p.read(ctx, backend); ok {
			return session, true
		}
	}
	return nil, false
}

// Clear implements domain.PersistenceAdapter
func (p *PersistenceAdapterImpl) Clear(ctx context.Context) {
	p.delete(ctx, domain.BackendDurable)
	p.delete(ctx, domain.BackendEphemeral)
}

// Locate implements domain.PersistenceAdapter. The durable store is probed first.
func (p *PersistenceAdapterImpl) Locate(ctx context.Context) (domain.StorageBackend, bool) {
	for _, backend := range []domain.StorageBackend{domain.BackendDurable, domain.BackendEphemeral} {
		_, err := p.store(backend).Get(ctx, SessionKey)
		if err == nil {
			return backend, true
		}
		if !errors.Is(err, domain.ErrStoreEntryNotFound) {
			p.logger.Warn("failed to probe session store", zap.Stringer("backend", backend), zap.Error(err))
		}
	}
	return domain.BackendDurable, false
}

// Rewrite implements domain.PersistenceAdapter
func (p *PersistenceAdapterImpl) Rewrite(ctx context.Context, backend domain.StorageBackend, session domain.StoredSession) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}
	if err := p.store(backend).Set(ctx, SessionKey, data); err != nil {
		return fmt.Errorf("failed to rewrite %s session: %w", backend, err)
	}
	return nil
}

// read returns the session held by backend. Missing, unreadable and corrupt
// entries all count as absent.
func (p *PersistenceAdapterImpl) read(ctx context.Context, backend domain.StorageBackend) (*domain.StoredSession, bool) {
	data, err := p.store(backend).Get(ctx, SessionKey)
	if err != nil {
		if !errors.Is(err, domain.ErrStoreEntryNotFound) {
			p.logger.Warn("failed to read session", zap.Stringer("backend", backend), zap.Error(err))
		}
		return nil, false
	}

	var session domain.StoredSession
	if err := json.Unmarshal(data, &session); err != nil || !session.Valid() {
		p.logger.Warn("discarding corrupt session entry", zap.Stringer("backend", backend), zap.Error(err))
		return nil, false
	}
	return &session, true
}

func (p *PersistenceAdapterImpl) delete(ctx context.Context, backend domain.StorageBackend) {
	if err := p.store(backend).Delete(ctx, SessionKey); err != nil {
		p.logger.Warn("failed to delete session", zap.Stringer("backend", backend), zap.Error(err))
	}
}
