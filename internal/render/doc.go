// Package render bridges sessions to the rendering surface.
//
// Three pieces live here:
//
//   - Bridge: per-session opaque state blobs (gzip-compressed in memory,
//     written through onto the session entity) so switching sessions
//     resumes where the user left off
//   - HTTPSurface: an HTTP-backed Surface implementation that fetches
//     pages with retry, sanitizes the HTML, and snapshots page plus
//     navigation history as its capturable state
//   - Coordinator: the end-to-end glue from user input through the
//     session store, connection tracker, surface, and persistence
//
// The switch ordering invariant is owned by the Coordinator: the
// outgoing session's state is always saved before the incoming session's
// state is loaded, so state is never lost on switch.
package render
