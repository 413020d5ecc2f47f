// Package honeycomb provides a reactive dependency-graph runtime for Go.
//
// # Overview
//
// Honeycomb organizes code around three core concepts:
//
//  1. Atoms: immutable descriptors of reactive slots (state cells,
//     derived computations, effect channels)
//  2. Containers: lifecycle managers that materialize atoms into live
//     nodes, track dependency edges and propagate change
//  3. Extensions: cross-cutting hooks wrapped around container
//     operations
//
// # Basic Usage
//
// Declare atoms once, at package level or during startup:
//
//	count := honeycomb.State(0)
//
//	doubled := honeycomb.Computed(func(ctx *honeycomb.ResolveCtx) (int, error) {
//	    n, err := honeycomb.Watch(ctx, count)
//	    if err != nil {
//	        return 0, err
//	    }
//	    return n * 2, nil
//	})
//
// Then resolve them through a container:
//
//	c := honeycomb.NewContainer()
//	defer c.Dispose()
//
//	v, err := honeycomb.Read(c, doubled)   // 0
//	err = honeycomb.Write(c, count, 21)
//	v, err = honeycomb.Read(c, doubled)    // 42
//
// Dependencies are discovered dynamically: whatever a compute function
// watches during an evaluation becomes its dependency set for that
// evaluation, so conditional reads rewire the graph on the fly.
//
// # Node Kinds
//
// State cells hold externally written values. Derived atoms come in
// four kinds:
//
//	// Lazy (default): computed on demand, cached until a dependency
//	// changes.
//	lazy := honeycomb.Computed(fn)
//
//	// Eager: computed at materialization and after every dependency
//	// change, even with no consumers.
//	eager := honeycomb.Eager(fn)
//
//	// Safe: compute errors and panics are captured as a Result value
//	// instead of propagating.
//	safe := honeycomb.Safe(fn)
//
//	// Async: two-phase. The sync phase watches dependencies and
//	// returns a thunk; the thunk runs on its own goroutine and its
//	// outcome lands as a tri-state AsyncValue.
//	user := honeycomb.Async(func(ctx *honeycomb.ResolveCtx) (honeycomb.Thunk[User], error) {
//	    id, err := honeycomb.Watch(ctx, userID)
//	    if err != nil {
//	        return nil, err
//	    }
//	    return func(ctx context.Context) (User, error) {
//	        return fetchUser(ctx, id)
//	    }, nil
//	})
//
// # Scopes and Overrides
//
// Child containers override individual atoms while sharing everything
// else with their parent chain:
//
//	testScope := honeycomb.NewScope(c,
//	    honeycomb.Override(dbConn, mockConn),
//	)
//
// An atom without an override resolves to a single shared node at the
// root, no matter which scope asks.
//
// # Effect Channels
//
// Channels broadcast one-shot payloads and never hold a current value:
//
//	saves := honeycomb.Channel[SaveEvent](honeycomb.BufferN(8))
//
//	sub, err := honeycomb.On(c, saves, func(ev SaveEvent) { ... })
//	defer sub.Cancel()
//
//	err = honeycomb.Emit(c, saves, SaveEvent{...})
//
// Delivery strategy is fixed at creation: Drop discards payloads with
// no listener, BufferN(k) replays the last k to new listeners, TTL(d)
// replays payloads younger than d.
//
// # Batching
//
// Batch coalesces writes so each affected node reacts once:
//
//	c.Batch(func() {
//	    honeycomb.Write(c, first, "Ada")
//	    honeycomb.Write(c, last, "Lovelace")
//	})
//	// fullName recomputed exactly once
//
// # Dispose Policies
//
// Atoms declare what happens when their last listener and observer go
// away:
//
//	session := honeycomb.State(Session{},
//	    honeycomb.WithDisposePolicy(honeycomb.AutoDispose),
//	)
//	cache := honeycomb.Computed(fn,
//	    honeycomb.WithDisposePolicy(honeycomb.Delayed(30*time.Second)),
//	)
//
// The default, KeepAlive, never disposes. Container.KeepAlive pins a
// node regardless of its atom's policy.
//
// # Resource Cleanup
//
// Compute functions register cleanups that run before every
// recomputation and at teardown, in reverse registration order:
//
//	conn := honeycomb.Computed(func(ctx *honeycomb.ResolveCtx) (*Conn, error) {
//	    cn, err := dial()
//	    if err != nil {
//	        return nil, err
//	    }
//	    ctx.OnCleanup(cn.Close)
//	    return cn, nil
//	})
//
// # Extensions
//
// Extensions wrap reads, writes and emits, and observe node lifecycle:
//
//	c := honeycomb.NewContainer(
//	    honeycomb.WithLogger(logger),
//	    honeycomb.WithExtension(extensions.NewLogging(logger)),
//	    honeycomb.WithExtension(extensions.NewMetrics(nil)),
//	)
//
// # Thread Safety
//
// All container operations are safe for concurrent use. A container
// tree serializes its graph work on one logical thread of control;
// only async thunks run concurrently, and their results re-enter
// through the same serialization point.
package honeycomb
