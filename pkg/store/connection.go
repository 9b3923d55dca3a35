// Package store manages the service's storage connections: the Postgres
// primary and read replicas, the Redis client, and schema migrations.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"sync/atomic"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver
)

// ConnectionManager holds the Postgres primary and read replica pools.
// Writes (view inserts) go to the primary; analytics reads go to a replica
// when one is configured.
type ConnectionManager struct {
	primary  *sql.DB
	replicas []*sql.DB
	current  uint32 // round-robin replica counter
}

// ConnectionConfig holds database connection configuration
type ConnectionConfig struct {
	PrimaryURL  string
	ReplicaURLs []string
	MaxConns    int
	MinConns    int
	Timeout     time.Duration
}

// NewConnectionManager connects to the primary and any reachable replicas.
// The primary is mandatory; an unreachable replica is skipped, not fatal.
func NewConnectionManager(cfg ConnectionConfig) (*ConnectionManager, error) {
	primary, err := openPool(cfg.PrimaryURL, cfg.MaxConns, cfg.MinConns, cfg.Timeout)
	if err != nil {
		return nil, fmt.Errorf("primary connection failed: %w", err)
	}

	cm := &ConnectionManager{primary: primary}

	for _, url := range cfg.ReplicaURLs {
		replicaMaxConns := cfg.MaxConns / 2
		if replicaMaxConns < 2 {
			replicaMaxConns = 2
		}
		replica, err := openPool(url, replicaMaxConns, cfg.MinConns, cfg.Timeout)
		if err != nil {
			// Replicas are optional; reads fall back to the primary
			continue
		}
		cm.replicas = append(cm.replicas, replica)
	}

	return cm, nil
}

func openPool(url string, maxConns, minConns int, timeout time.Duration) (*sql.DB, error) {
	db, err := sql.Open("postgres", url)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(maxConns)
	db.SetMaxIdleConns(minConns)
	db.SetConnMaxLifetime(30 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// Primary returns the write pool
func (cm *ConnectionManager) Primary() *sql.DB {
	return cm.primary
}

// Replica returns a read pool, round-robin across replicas, falling back to
// the primary when none are configured.
func (cm *ConnectionManager) Replica() *sql.DB {
	if len(cm.replicas) == 0 {
		return cm.primary
	}
	index := atomic.AddUint32(&cm.current, 1)
	return cm.replicas[int(index%uint32(len(cm.replicas)))]
}

// Close closes all pools, returning the first error encountered
func (cm *ConnectionManager) Close() error {
	var firstErr error
	if err := cm.primary.Close(); err != nil {
		firstErr = err
	}
	for _, replica := range cm.replicas {
		if err := replica.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
