// Package reachability watches whether the network can reach a
// well-known probe endpoint, so connection failures can be attributed
// to the network rather than to a specific server.
package reachability
