// Package inspect serves an overlay stack over HTTP.
//
// A Server owns the stack: every request is handed to the goroutine running
// Server.Run, which is also where background work queued by the stack
// (finished loads, delayed removals) is drained. Clients connected to /ws
// receive a snapshot each time the stack changes.
//
//	srv := inspect.New(stack, reg, logger)
//	go srv.Run(ctx)
//	http.ListenAndServe(":7070", srv.Handler())
//
// Routes:
//
//	GET  /stack          current snapshot as JSON
//	POST /open/{key}     open an overlay, JSON body is its props; ?wait=true
//	                     blocks until it closes and returns the result
//	POST /close/{id}     close an entry, optional JSON body is the result
//	POST /close-current  close the topmost present entry
//	POST /close-all      close every entry
//	GET  /render         render the stack as HTML; ?ctx= is the render context
//	GET  /ws             websocket feed of snapshots
package inspect
