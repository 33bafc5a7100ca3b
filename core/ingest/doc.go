// Package ingest implements the ingestion coordinator for cart location
// reports.
//
// Every accepted report is appended to the location ledger unconditionally;
// the cart's projected current state is advanced only when the report's
// timestamp is strictly greater than the projected one. The projection is
// therefore a max-by-timestamp fold over the set of accepted reports:
// commutative and idempotent, so the final cart state does not depend on
// the order reports arrive in.
//
// Two entry modes share the single Report operation:
//   - manual: an authenticated operator supplies any field, selecting the
//     cart by internal id or external identifier.
//   - device: an unauthenticated reporting device selects the cart by
//     external identifier and usually supplies only the position; battery
//     then inherits the cart's last-known value.
//
// Append and projection update are serialized per cart, so a reader never
// observes a ledger entry whose projection effect is half applied.
package ingest
