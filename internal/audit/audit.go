// Package audit builds and emits audit rows for the authentication
// pipeline. Every mutating operation accumulates an Entry across its
// validation and execution steps, the same audit-closure shape the
// teacher's ban/unban/set_role handlers use (build up fields as the call
// progresses, emit exactly once at the end, success or failure alike), but
// backed by the persisted store.AuditRepo instead of a structured log line.
// Emission failure is swallowed: an audit sink outage must never fail the
// request it is merely recording (§4.4, §7 "best effort" framing).
package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/mojzu/sso/internal/domain"
	"github.com/mojzu/sso/internal/store"
	"github.com/rs/zerolog"
)

// Entry is the in-flight audit row. Construct with New, chain With* calls
// as the pipeline resolves more context, then hand to Engine.Record.
type Entry struct {
	typ        string
	userAgent  string
	remote     string
	forwarded  *string
	subject    *string
	data       map[string]any
	statusCode *int
	keyID      *uuid.UUID
	serviceID  *uuid.UUID
	userID     *uuid.UUID
	userKeyID  *uuid.UUID
}

// New starts an entry for a dotted event type (e.g. "key.user.token.create",
// "auth.login.failed").
func New(typ string) Entry {
	return Entry{typ: typ}
}

func (e Entry) WithRequest(userAgent, remote string, forwarded *string) Entry {
	e.userAgent = userAgent
	e.remote = remote
	e.forwarded = forwarded
	return e
}

func (e Entry) WithSubject(subject string) Entry {
	if subject == "" {
		return e
	}
	e.subject = &subject
	return e
}

func (e Entry) WithStatus(code int) Entry {
	e.statusCode = &code
	return e
}

func (e Entry) WithService(id uuid.UUID) Entry {
	e.serviceID = &id
	return e
}

func (e Entry) WithUser(id uuid.UUID) Entry {
	e.userID = &id
	return e
}

func (e Entry) WithKey(id uuid.UUID) Entry {
	e.keyID = &id
	return e
}

func (e Entry) WithUserKey(id uuid.UUID) Entry {
	e.userKeyID = &id
	return e
}

func (e Entry) WithDiff(db *DiffBuilder) Entry {
	if db == nil || !db.Changed() {
		return e
	}
	e.data = db.Data()
	return e
}

func (e Entry) WithData(data map[string]any) Entry {
	e.data = data
	return e
}

// Engine persists Entry values through store.AuditRepo.
type Engine struct {
	store store.Store
	log   zerolog.Logger
}

func NewEngine(s store.Store, log zerolog.Logger) *Engine {
	return &Engine{store: s, log: log}
}

// Record writes entry and returns the created row's ID, or the zero UUID
// if emission failed. The error is logged, never returned: callers invoke
// Record as the last step of a pipeline step whose own success/failure has
// already been decided.
func (eng *Engine) Record(ctx context.Context, entry Entry) uuid.UUID {
	row, err := eng.store.Audit().Create(ctx, domain.AuditCreate{
		UserAgent:  entry.userAgent,
		Remote:     entry.remote,
		Forwarded:  entry.forwarded,
		Type:       entry.typ,
		Subject:    entry.subject,
		Data:       entry.data,
		StatusCode: entry.statusCode,
		KeyID:      entry.keyID,
		ServiceID:  entry.serviceID,
		UserID:     entry.userID,
		UserKeyID:  entry.userKeyID,
	})
	if err != nil {
		eng.log.Warn().Err(err).Str("type", entry.typ).Msg("audit emission failed")
		return uuid.UUID{}
	}
	return row.ID
}

// ReadByID reads a single row, masked to serviceIDMask when the caller is a
// service-scoped credential rather than root (§4.4).
func (eng *Engine) ReadByID(ctx context.Context, id uuid.UUID, serviceIDMask *uuid.UUID) (*domain.Audit, error) {
	row, err := eng.store.Audit().ReadByID(ctx, id, serviceIDMask)
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, domain.ErrAuditNotFound()
	}
	return row, nil
}

// Update applies a bounded patch inside the store's grace window.
func (eng *Engine) Update(ctx context.Context, id uuid.UUID, upd domain.AuditUpdate, graceWindow time.Duration) (*domain.Audit, error) {
	row, err := eng.store.Audit().Update(ctx, id, upd, graceWindow)
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, domain.ErrAuditNotFound()
	}
	return row, nil
}

func (eng *Engine) List(ctx context.Context, q domain.AuditListQuery, f domain.AuditListFilter) ([]domain.Audit, error) {
	return eng.store.Audit().List(ctx, q, f)
}
