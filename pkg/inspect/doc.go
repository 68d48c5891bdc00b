// Package inspect provides a development-time HTTP inspector for a
// reactor graph: named values are registered with an Inspector, which
// subscribes to them through the engine's public observer surface and
// exposes their latest values as a JSON snapshot, a WebSocket stream of
// updates, and Prometheus metrics.
//
//	ins := inspect.New()
//	inspect.Register(ins, "temperature", tempState)
//	http.ListenAndServe(":6060", ins.Handler())
//
// Registration and writes must happen on the goroutine that drives the
// graph; the HTTP handlers only read the inspector's own snapshot,
// which is guarded separately.
package inspect
