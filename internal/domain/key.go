package domain

import "github.com/google/uuid"

// KeyType discriminates the kind of credential a key row represents once it
// is scoped to a user (Root and Service keys never carry a KeyType beyond
// KeyTypeKey — routing is decided by which of service_id/user_id are set,
// not by type alone).
type KeyType string

const (
	KeyTypeKey   KeyType = "key"   // plain bearer secret; any number per (service,user)
	KeyTypeToken KeyType = "token" // JWT signing key; at most one enabled per (service,user)
	KeyTypeTotp  KeyType = "totp"  // TOTP seed; at most one enabled per (service,user)
)

func (t KeyType) Valid() bool {
	switch t {
	case KeyTypeKey, KeyTypeToken, KeyTypeTotp:
		return true
	default:
		return false
	}
}

// KeyValueBytes is the number of CSPRNG bytes used to build a key's secret
// value before base32 encoding.
const KeyValueBytes = 21

// Key is the routing-safe view of a credential: no secret value, safe to
// return to anyone who can already read rows in this service's scope.
type Key struct {
	ID        uuid.UUID
	IsEnabled bool
	IsRevoked bool
	Type      KeyType
	Name      string
	ServiceID *uuid.UUID // nil => root key
	UserID    *uuid.UUID // nil => root or service key
}

// Kind classifies a key by which of ServiceID/UserID are set. This is the
// single discriminant every read path must apply; routing by kind, never by
// secret match alone, is what prevents a service key answering to a root
// lookup or a user key answering to a service lookup.
type Kind int

const (
	KindRoot Kind = iota
	KindService
	KindUser
)

func (k *Key) Kind() Kind {
	switch {
	case k.ServiceID == nil && k.UserID == nil:
		return KindRoot
	case k.ServiceID != nil && k.UserID == nil:
		return KindService
	default:
		return KindUser
	}
}

// Active reports whether a key may still be used to authenticate: enabled
// and not revoked. Revocation is monotonic — once true it is never cleared.
func (k *Key) Active() bool {
	return k.IsEnabled && !k.IsRevoked
}

// KeyWithValue is Key plus its secret. It only ever leaves the store
// boundary on creation (the caller needs the value exactly once) or during
// an authenticated lookup that needs to sign/verify with it.
type KeyWithValue struct {
	Key
	Value string
}

// KeyCreate is the insertion payload for any of the three create_* entry
// points in the key engine.
type KeyCreate struct {
	IsEnabled bool
	IsRevoked bool
	Type      KeyType
	Name      string
	Value     string
	ServiceID *uuid.UUID
	UserID    *uuid.UUID
}

// KeyUpdate is a partial update; nil fields are left untouched. The store
// enforces revocation monotonicity: once is_revoked is true in a row, a
// later update setting it to false is ignored (the row stays revoked) and
// returns no error.
type KeyUpdate struct {
	IsEnabled *bool
	IsRevoked *bool
	Name      *string
}

// KeyRead is the sum type of every lookup path the key engine supports. Each
// variant corresponds exactly to one routing rule from §4.1: a root lookup
// never matches a service- or user-scoped row and vice versa.
type KeyRead struct {
	variant keyReadVariant

	id uuid.UUID

	rootValue string

	serviceValue string

	userServiceID uuid.UUID
	userID        uuid.UUID
	userValue     string
	userType      KeyType
	userEnabled   bool
	userRevoked   bool
	byValue       bool
}

type keyReadVariant int

const (
	keyReadID keyReadVariant = iota
	keyReadRootValue
	keyReadServiceValue
	keyReadUser
)

func KeyReadByID(id uuid.UUID) KeyRead {
	return KeyRead{variant: keyReadID, id: id}
}

// KeyReadRootValue matches only rows with service_id=NULL and user_id=NULL.
func KeyReadRootValue(value string) KeyRead {
	return KeyRead{variant: keyReadRootValue, rootValue: value}
}

// KeyReadServiceValue matches only rows with service_id!=NULL and
// user_id=NULL.
func KeyReadServiceValue(value string) KeyRead {
	return KeyRead{variant: keyReadServiceValue, serviceValue: value}
}

// KeyReadUserID matches a user-scoped row by (service,user,type), requiring
// is_enabled/is_revoked to equal the given flags.
func KeyReadUserID(serviceID, userID uuid.UUID, t KeyType, enabled, revoked bool) KeyRead {
	return KeyRead{
		variant:       keyReadUser,
		userServiceID: serviceID,
		userID:        userID,
		userType:      t,
		userEnabled:   enabled,
		userRevoked:   revoked,
	}
}

// KeyReadUserValue matches a user-scoped row by (service,value,type).
func KeyReadUserValue(serviceID uuid.UUID, value string, t KeyType, enabled, revoked bool) KeyRead {
	return KeyRead{
		variant:       keyReadUser,
		userServiceID: serviceID,
		userValue:     value,
		userType:      t,
		userEnabled:   enabled,
		userRevoked:   revoked,
		byValue:       true,
	}
}

func (r KeyRead) Variant() int         { return int(r.variant) }
func (r KeyRead) ID() uuid.UUID        { return r.id }
func (r KeyRead) RootValue() string    { return r.rootValue }
func (r KeyRead) ServiceValue() string { return r.serviceValue }
func (r KeyRead) UserServiceID() uuid.UUID { return r.userServiceID }
func (r KeyRead) UserID() uuid.UUID        { return r.userID }
func (r KeyRead) UserValue() string        { return r.userValue }
func (r KeyRead) UserType() KeyType        { return r.userType }
func (r KeyRead) UserEnabled() bool        { return r.userEnabled }
func (r KeyRead) UserRevoked() bool        { return r.userRevoked }
func (r KeyRead) ByValue() bool            { return r.byValue }
func (r KeyRead) IsUserVariant() bool      { return r.variant == keyReadUser }
func (r KeyRead) IsIDVariant() bool        { return r.variant == keyReadID }
func (r KeyRead) IsRootValueVariant() bool { return r.variant == keyReadRootValue }
func (r KeyRead) IsServiceValueVariant() bool { return r.variant == keyReadServiceValue }
