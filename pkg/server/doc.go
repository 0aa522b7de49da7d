// Package server assembles the gateway's HTTP surface: the protected
// notify endpoints behind the admission filter, the admin CRUD surface,
// and the health and metrics endpoints, wrapped in the shared middleware
// chain and managed through a graceful start/shutdown lifecycle.
package server
