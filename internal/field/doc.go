// Package field implements the computed-field evaluation engine: a directed
// acyclic graph of typed field expressions that can be evaluated at any
// location.Location with memoization, derivatives and inverse assignment.
//
// # Main Types
//
//   - **Field:** a graph node with a name, a component count, ordered source
//     fields and exactly one Core
//   - **Core:** the per-type behaviour (evaluate, derivative, assign,
//     compare, describe). Built-in cores live under modules/ and embed
//     BaseCore for the default behaviour.
//   - **Cache:** a per-evaluation-context memoization table. Set a location,
//     then evaluate fields through it.
//   - **Module:** owns the fields of one region. It enforces unique names,
//     reference counting, "in use" removal checks and batches change
//     notifications.
//
// # Evaluation
//
//	cache := module.NewCache()
//	cache.SetNode(node)
//	values, err := cache.EvaluateReal(f)
//
// A Core is invoked at most once per field per distinct location seen by a
// cache. Failure is an ordinary result: errors.Is(err, ErrUndefined) means
// "no value here" and is never logged as an error.
//
// # Concurrency
//
// Evaluation is synchronous. A Cache belongs to one goroutine, but several
// caches may evaluate the same module concurrently as long as nobody mutates
// it. Module mutations (create, destroy, redefine, assign, rename) require
// external exclusion. Reference counts are atomic.
//
// # Change Notification
//
// Every mutation is recorded in a coalescing changelog.Log. At change level
// zero the log is flushed to observers immediately. Inside
// BeginChange/EndChange it is flushed once, when the outermost batch ends:
//
//	defer module.BeginChange().End()
package field
