// Package eventloop runs a single-goroutine task loop with file-descriptor
// readability watches, the execution model a commit pipeline suspends and
// resumes on.
//
// Everything the loop runs, posted tasks and watch callbacks alike, runs on
// the one goroutine inside Run. Waiting for a descriptor never blocks that
// goroutine: OnReadable registers a one-shot callback and returns, and the
// callback runs on the loop once the descriptor is readable. Cross-thread
// Post wakes the loop through an eventfd.
//
// # Ordering
//
// Posted tasks run in post order. Watch callbacks run between task batches,
// in the cycle their descriptor became ready. A callback may post more
// tasks or register more watches; they are picked up in the same cycle.
//
// # Platform
//
// The watcher is epoll, so New succeeds only on Linux. Everything else in
// the module stays portable; only running a loop needs the platform.
package eventloop
