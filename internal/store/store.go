package store

import "errors"

// Common errors returned by the store
var ErrNotFound = errors.New("key not found")

// Fixed keys shared by the engines. Versioned so a future layout change can
// coexist with stale state from an older build.
const (
	KeyCart       = "jo.cart.v1"
	KeyAccess     = "jo.access.v1"
	KeyRefresh    = "jo.refresh.v1"
	KeyLastTicket = "jo.last_ticket.v1"
)

// Store is the durable key-value boundary the engines persist through.
// Implementations must treat values as opaque bytes.
type Store interface {
	Get(key string) ([]byte, error)
	Set(key string, value []byte) error
	Delete(key string) error
}
