package domain

import (
	"time"

	"github.com/google/uuid"
)

// Audit is one append-dominant record of a request's outcome. Subject is a
// human-meaningful identifier the caller chooses (email, UUID); Data is a
// free-form diff or context blob. The four actor ID fields are optional and
// are filled in as the authentication pipeline resolves them.
type Audit struct {
	ID          uuid.UUID
	CreatedAt   time.Time
	UpdatedAt   time.Time
	UserAgent   string
	Remote      string
	Forwarded   *string
	Type        string // dotted string, <=200 bytes
	Subject     *string
	Data        map[string]any
	StatusCode  *int
	KeyID       *uuid.UUID
	ServiceID   *uuid.UUID
	UserID      *uuid.UUID
	UserKeyID   *uuid.UUID
}

// AuditCreate is the insertion payload.
type AuditCreate struct {
	UserAgent  string
	Remote     string
	Forwarded  *string
	Type       string
	Subject    *string
	Data       map[string]any
	StatusCode *int
	KeyID      *uuid.UUID
	ServiceID  *uuid.UUID
	UserID     *uuid.UUID
	UserKeyID  *uuid.UUID
}

// AuditUpdate is a bounded post-creation patch; only these three fields may
// ever be changed, and only inside the store's update grace window.
type AuditUpdate struct {
	Subject    *string
	Data       map[string]any
	StatusCode *int
}

// AuditListQuery is the range-cursor shape from §4.4: exactly one of the
// three variants is active at a time.
type AuditListQuery struct {
	CreatedLe *time.Time // descending from this bound
	CreatedGe *time.Time // ascending from this bound
	// when both are set the shape is CreatedLeAndGe: ascending, bounded
	// on both sides.
	Limit    int64
	OffsetID *uuid.UUID
}

// AuditListFilter is AND-ed with the query; ServiceID, when set by the
// transport layer for a service-scoped caller, always masks the result.
type AuditListFilter struct {
	ID        []uuid.UUID
	Type      []string
	Subject   *string
	ServiceID *uuid.UUID
	UserID    *uuid.UUID
}
