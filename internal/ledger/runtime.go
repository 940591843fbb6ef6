// Package ledger is the hosting runtime the programs execute on: it supplies
// the clock, all-or-nothing execution of multi-step operations, native
// currency transfers, and the token and metadata services.
package ledger

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Runtime executes operations against the account store.
type Runtime struct {
	db        *gorm.DB
	programID solana.PublicKey
	nowFn     func() time.Time
	locks     *lockTable
}

// NewRuntime constructs a Runtime. A nil nowFn uses time.Now.
func NewRuntime(db *gorm.DB, programID solana.PublicKey, nowFn func() time.Time) *Runtime {
	if nowFn == nil {
		nowFn = time.Now
	}
	return &Runtime{
		db:        db,
		programID: programID,
		nowFn:     nowFn,
		locks:     newLockTable(),
	}
}

// ProgramID returns the program the runtime executes for.
func (r *Runtime) ProgramID() solana.PublicKey { return r.programID }

// Now returns the runtime clock.
func (r *Runtime) Now() time.Time { return r.nowFn() }

// View returns a read-only handle bound to ctx.
func (r *Runtime) View(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx)
}

// Execute runs fn as one indivisible unit of work.
//
// The writable accounts are locked for the whole call, in sorted order, so two
// operations touching the same account never interleave while operations on
// disjoint accounts run in parallel. Every write fn makes is committed together
// or, if fn returns an error, not at all.
func (r *Runtime) Execute(ctx context.Context, writable []solana.PublicKey, fn func(tx *Tx) error) error {
	if r == nil || r.db == nil {
		return fmt.Errorf("ledger: runtime not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	unlock := r.locks.acquire(writable)
	defer unlock()

	now := r.nowFn().Unix()
	return r.db.WithContext(ctx).Transaction(func(gtx *gorm.DB) error {
		return fn(&Tx{db: gtx, ctx: ctx, now: now, programID: r.programID})
	})
}

// Tx is the view of the ledger inside one unit of work.
type Tx struct {
	db        *gorm.DB
	ctx       context.Context
	now       int64
	programID solana.PublicKey
}

// DB returns the transaction handle.
func (tx *Tx) DB() *gorm.DB { return tx.db }

// Locked returns the transaction handle with row locks for update.
func (tx *Tx) Locked() *gorm.DB {
	return tx.db.Clauses(clause.Locking{Strength: "UPDATE"})
}

// Context returns the caller's context.
func (tx *Tx) Context() context.Context { return tx.ctx }

// Now returns the unix timestamp fixed at the start of the unit of work.
func (tx *Tx) Now() int64 { return tx.now }

// ProgramID returns the executing program.
func (tx *Tx) ProgramID() solana.PublicKey { return tx.programID }

// lockTable hands out per-account mutexes, releasing entries nobody waits on.
type lockTable struct {
	mu    sync.Mutex
	locks map[solana.PublicKey]*accountLock
}

type accountLock struct {
	mu   sync.Mutex
	refs int
}

func newLockTable() *lockTable {
	return &lockTable{locks: make(map[solana.PublicKey]*accountLock)}
}

func (t *lockTable) acquire(keys []solana.PublicKey) func() {
	ordered := uniqueSorted(keys)
	held := make([]*accountLock, 0, len(ordered))

	t.mu.Lock()
	for _, key := range ordered {
		entry := t.locks[key]
		if entry == nil {
			entry = &accountLock{}
			t.locks[key] = entry
		}
		entry.refs++
		held = append(held, entry)
	}
	t.mu.Unlock()

	for _, entry := range held {
		entry.mu.Lock()
	}

	return func() {
		for i := len(held) - 1; i >= 0; i-- {
			held[i].mu.Unlock()
		}
		t.mu.Lock()
		for i, key := range ordered {
			held[i].refs--
			if held[i].refs == 0 {
				delete(t.locks, key)
			}
		}
		t.mu.Unlock()
	}
}

func uniqueSorted(keys []solana.PublicKey) []solana.PublicKey {
	seen := make(map[solana.PublicKey]struct{}, len(keys))
	out := make([]solana.PublicKey, 0, len(keys))
	for _, key := range keys {
		if key.IsZero() {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, key)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].String() < out[j].String()
	})
	return out
}
