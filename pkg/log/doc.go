// Package log provides structured logging for the backup service using
// zerolog: a global Logger initialized once via Init, plus child-logger
// constructors for the contexts the service actually threads through
// code — a named component (WithComponent), an inbound HTTP request
// (WithRequestID), and a cluster worker process (WithWorkerID).
//
// JSONOutput selects JSON (production) vs a console-formatted writer
// (development); Level filters below zerolog's global level.
package log
