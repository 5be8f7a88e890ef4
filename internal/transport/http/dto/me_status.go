package dto

import "github.com/google/uuid"

// WhoAmIData reports which identity kind the presented Authorization
// credential resolved to (§4.5) — useful for clients probing whether a
// key still authenticates without attempting a scoped operation.
type WhoAmIData struct {
	Root      bool       `json:"root"`
	ServiceID *uuid.UUID `json:"service_id,omitempty"`
	UserID    *uuid.UUID `json:"user_id,omitempty"`
}
