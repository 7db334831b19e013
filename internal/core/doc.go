// Package core holds the domain model and the pure parts of the dados pipeline.
//
// It has no database, transport or rendering dependencies, so the parser and
// the filter engine can be used by the web handlers, the CLI and the report
// scheduler alike.
//
// # Data Model
//
// A [Record] is one row of the fixed three-column table (column1, column2,
// value). A [Table] is an ordered, disposable snapshot of the store contents.
// A [FilterSpec] constrains columns by exact equality; [Apply] derives a new
// Table from it without touching the input.
//
// # Ingestion Input
//
// [ParseCSV] reads a header row followed by rows of exactly three positional
// fields. A UTF-8 or UTF-16 byte order mark is honoured and ill-formed UTF-8 is
// replaced before parsing. Every failure is a [ParseError] carrying the line
// number, and parsing finishes before any caller touches the store.
//
// # Error Handling
//
// The error taxonomy is [ConnectionError], [ParseError], [RenderError],
// [DeliveryError] and [AuthorizationError]. [MapError] turns any of them into
// a [UserMessage] with a support code:
//
//   - DB004-DB007: Database errors (connections, timeouts)
//   - VAL002-VAL004: Validation errors (numbers, column counts, filters)
//   - FILE001-FILE005: File errors (size, encoding, format)
//   - EXP001-EXP002: Export rendering errors
//   - MAIL001: Delivery errors
//   - AUTH001-AUTH002: Authentication and capability errors
//   - UPL003-UPL005, RATE001: Load shedding, cancellation and timeouts
package core
