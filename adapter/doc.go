// Package adapter defines the narrow storage contract the engine consumes.
//
// The engine never issues SQL or database-specific queries; it expresses
// every read and write as a CRUD operation over one of four models (user,
// session, account, verification) with a structured Where clause. Concrete
// adapters translate those operations into their backend's dialect.
// Records cross the boundary as map[string]any so plugin-contributed
// schema fields need no adapter changes.
package adapter
