// Package plans defines the subscription plan, client, and global rate
// limit rule entities that the durable store persists and the rest of the
// limits packages read from.
package plans
