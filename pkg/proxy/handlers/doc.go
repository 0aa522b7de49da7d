// Package handlers implements the gateway's HTTP handlers: the protected
// notification endpoints the rate limiter guards, and the admin CRUD
// surface over plans, clients, and global rules.
//
// The notify handlers are delivery stubs: they validate the request and
// acknowledge it, standing in for whatever actually sends the SMS or
// email. The admin handlers are thin wrappers over the durable store with
// one piece of real behavior: writes that change an already-cached entity
// invalidate the subscription cache and the client's counters so stale
// limits never outlive an edit.
package handlers
