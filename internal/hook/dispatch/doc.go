// Package dispatch provides the two execution strategies behind the hook
// registry.
//
// Both strategies walk an ordered slice of Steps that the caller snapshotted
// from the registry; neither touches the registry itself.
//
// # Dispatchers
//
//   - SyncDispatcher: invokes each step in the caller's goroutine and stops at
//     the first failure. The failure is returned to the caller as a
//     *HandlerError or *PanicError.
//
//   - AsyncDispatcher: invokes each step in order, waiting for it to return
//     before starting the next one. Failures are captured into an ErrorSet
//     keyed by step ID and the pass continues with the next step.
//
// Steps never run in parallel. Later steps depend on observing the writes of
// earlier ones.
//
// # Panic Recovery
//
// Both dispatchers recover from panics in handlers through the Executor, so a
// misbehaving handler cannot crash the host process. Panics are reported via
// an optional PanicHandler callback and surface as *PanicError values.
//
// # Usage
//
//	steps := []dispatch.Step{
//	    {ID: "a", Handler: dispatch.HandlerFunc(first)},
//	    {ID: "b", Handler: dispatch.HandlerFunc(second)},
//	}
//
//	if err := dispatch.NewSyncDispatcher().Dispatch(ctx, "user.save", steps); err != nil {
//	    // the first failing step, later steps were skipped
//	}
//
//	errs := dispatch.NewAsyncDispatcher().Dispatch(ctx, "user.save", steps)
//	errs.Each(func(id string, err error) {
//	    log.Printf("handler %s failed: %v", id, err)
//	})
package dispatch
