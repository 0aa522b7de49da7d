// Package subscription resolves a client id to its currently effective
// subscription plan, fronting the durable store with a short-lived cache in
// the shared counter store.
package subscription
