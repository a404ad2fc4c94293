// Package widget implements the chat widget controller: one Session per widget
// activation, its in-memory conversation, the idle reminder watchdog and the
// retrying response engine.
//
// A Session serializes every command, generation result and idle timer
// callback on its own mutex, so callers may invoke it from any goroutine.
// Rendering is delegated to a MessageSink and persistence to a
// domain.HistoryStore; neither can fail a command.
package widget
