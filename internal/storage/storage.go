// Package storage groups the repositories of one storage backend.
package storage

import (
	"context"

	"github.com/Devanshprabhakar24/Scatch/internal/domain/auth"
	"github.com/Devanshprabhakar24/Scatch/internal/domain/coupon"
	"github.com/Devanshprabhakar24/Scatch/internal/domain/order"
	"github.com/Devanshprabhakar24/Scatch/internal/domain/product"
	"github.com/Devanshprabhakar24/Scatch/internal/domain/user"
)

// Backend names accepted by configuration.
const (
	BackendPostgres = "postgres"
	BackendMongo    = "mongo"
	BackendMemory   = "memory"
)

// Repositories is the set of repositories backed by a single store. Tx runs
// functions atomically across all of them.
type Repositories struct {
	Products product.Repository
	Users    user.Repository
	Coupons  coupon.Repository
	Orders   order.Repository
	APIKeys  auth.Repository
	Tx       order.Transactor

	// Ping reports whether the backing store is reachable.
	Ping func(ctx context.Context) error
	// Close releases the backing store.
	Close func(ctx context.Context) error
}
