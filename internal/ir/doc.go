// Package ir provides the value and document types shared by every other
// package.
//
// ir imports nothing internal. It holds:
//   - the sealed IRValue model used for state payloads and log records
//   - the canonical JSON encoding (RFC 8785 key order, NFC strings)
//   - Document, the four-key record (status, state, events, errors)
//   - Log, the insertion-ordered map used for the events and errors logs
//   - Outcome and the typed event/error record views
//
// All wire keys use snake_case.
package ir
