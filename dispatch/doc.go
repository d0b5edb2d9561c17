// Package dispatch provides the explicit execution contexts the typed API
// client schedules its work on.
//
// A [Loop] is a serial FIFO executor standing in for an application's main
// context: state owned by the loop is only touched by tasks it runs, and
// results are delivered back through it. A [Pool] runs background work on
// goroutines bounded by a concurrency limit. [Inline] runs tasks on the
// submitting goroutine.
//
//	loop := dispatch.NewLoop()
//	go loop.Run(ctx)
//
//	pool := dispatch.NewPool(8)
//	defer pool.Wait()
//
//	err := pool.Submit(func() {
//		v := work()
//		_ = loop.Submit(func() { use(v) })
//	})
package dispatch
