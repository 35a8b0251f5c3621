// Package hook provides the extension-point dispatcher.
//
// Independently loaded modules register handlers against named hooks. When
// the host runs a hook, every registered handler of the matching kind is
// invoked in a deterministic order with a fresh, shared, mutable Context.
//
// # Architecture
//
//	          ┌────────────────────────────────────────────┐
//	          │                  Hooks                     │
//	          │  - Register / RegisterAsync / Unregister   │
//	          │  - RunSync / Run / Go                      │
//	          └────────────────────────────────────────────┘
//	                    │                       │
//	                    ▼                       ▼
//	          ┌─────────────────┐     ┌──────────────────────┐
//	          │    Registry     │     │  dispatch package    │
//	          │  - buckets      │     │  - SyncDispatcher    │
//	          │  - id index     │     │  - AsyncDispatcher   │
//	          └─────────────────┘     │  - ErrorSet          │
//	                                  └──────────────────────┘
//
// # Ordering
//
// Handlers run by ascending Priority; equal priorities run in registration
// order. Re-registering an existing ID replaces the handler in place: it
// keeps its original slot among equal priorities.
//
//	hooks.Register("user.save", a, hook.WithPriority(hook.PriorityHigh))
//	hooks.Register("user.save", b)                       // PriorityNeutral
//	hooks.Register("user.save", c, hook.WithPriority(hook.PriorityHigh))
//	// order: a, c, b
//
// # Dispatch Modes
//
// Synchronous handlers (Register) run through RunSync in the caller's
// goroutine. The first failure stops the pass and is returned.
//
// Asynchronous handlers (RegisterAsync) run through Run. Each handler may
// block and is awaited before the next starts. Failures are collected into
// an ErrorSet and the pass continues.
//
// Both modes take a snapshot of the registry when the pass starts; handlers
// registered or removed during a pass take effect on the next one.
//
// # Cancellation
//
// There is none. The context.Context given to Run is passed to handlers for
// their own use, and a caller that stops waiting (see Future.Wait) does not
// stop the pass.
package hook
