// Package api provides the brokerage REST client.
//
// All endpoints go through a single Client:
//   - responses arrive in a {"data": ..., "context": ...} envelope with
//     kebab-case field names
//   - brokerage rejections decode into *Error with code and message intact
//   - a 401 triggers exactly one token refresh and retry; a second 401
//     surfaces to the caller
//   - order-mutating calls are never retried automatically
package api
