// Package session manages the session lifecycle: creation, validation,
// sliding refresh, and revocation.
//
// Two interchangeable managers share one contract. The database manager
// stores sessions as adapter rows addressed by a random high-entropy
// token. The stateless manager embeds an encrypted {user, session}
// snapshot inside a signed JWT so validation needs no storage round-trip;
// the trade-off is that revocation before the embedded expiry requires an
// optional Denylist.
package session
