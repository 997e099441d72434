// Package resilience provides a circuit breaker for outbound requests.
//
// The breaker protects a flaky server from being hammered: after a run
// of consecutive failures it opens and refuses requests for a cooldown
// period, then lets a single trial request through.
//
//	Closed --[failures]-> Open --[cooldown]-> Half-Open --[success]-> Closed
//	                                              |
//	                                          [failure]
//	                                              v
//	                                            Open
package resilience
