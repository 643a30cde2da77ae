// Package sse streams live metric events to HTTP clients as Server-Sent
// Events.
//
// The Hub is a metrics.Observer: register it with the aggregator and every
// recorded event is fanned out to the connected clients whose filter
// matches it. A slow client loses events instead of stalling the others.
//
//	hub := sse.NewHub()
//	go hub.Run()
//	agg.AddObserver(hub)
//	router.GET("/metrics/stream", func(c *gin.Context) {
//	    sse.ServeSSE(hub, c.Writer, c.Request, uuid.NewString(),
//	        sse.WithSessionID(c.Query("session_id")))
//	})
package sse
