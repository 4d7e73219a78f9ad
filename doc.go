// Package todos provides the authenticated todo-list core: JWT issuance and
// verification, bcrypt-backed identity verification, owner-scoped todo
// persistence over Bun, and a JSON API controller.
//
// Ownership:
//   - Every todo row carries an immutable owner_id. Repositories include the
//     owner in every predicate, so a caller can never observe or mutate rows
//     that belong to a different identity. A miss on (id, owner_id) is
//     reported as a single merged not-found error on purpose; splitting it
//     into "not found" vs "forbidden" would leak row existence across owners.
//
// Sessions:
//   - Tokens are stateless HS256 JWTs. The server enforces the embedded
//     expiry only; the client package layers its own shorter idle window on
//     top (see the client package).
package todos
