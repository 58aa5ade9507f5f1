// Package shutdown coordinates graceful process termination.
//
// Components register named hooks; on SIGINT, SIGTERM or an explicit
// Trigger the hooks run in reverse registration order under one shared
// timeout:
//
//	h := shutdown.NewHandler(10*time.Second, shutdown.WithLogger(log))
//	h.OnShutdown("storage", store.Close)
//	h.OnShutdown("redis", srv.Shutdown)
//	if err := h.Wait(); err != nil { ... }
package shutdown
