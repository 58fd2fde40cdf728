// Package changefeed provides observers for field change batches.
//
// A LogObserver writes each batch to a slog logger, a Recorder keeps them
// in memory, and a Publisher forwards them to a socket.io server as
// "field_changes" events. All of them implement field.Observer and are
// attached with Module.Subscribe.
package changefeed
