// Package persist maps the session store's durable subset onto an
// external key-value store.
//
// Two independent records are kept: the live-session mirror (session
// metadata plus the active pointer, overwritten wholesale on every
// persist) and the bounded recent-server history. Connection state and
// render state never persist; rehydrated sessions are known-disconnected.
//
// Corruption policy: a corrupt or missing durable record is equivalent to
// no history. Nothing in this package propagates a load failure.
package persist
