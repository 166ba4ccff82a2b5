// Package progress provides the event primitives, non-blocking hub, and
// emitter interfaces the crawl loop uses to report its milestones. Events
// are delivered to pluggable sinks in emission order on a background
// goroutine so the loop never stalls on a slow consumer.
package progress
