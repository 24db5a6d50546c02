package adapter

import "context"

// Model identifies an entity collection.
type Model string

const (
	ModelUser         Model = "user"
	ModelSession      Model = "session"
	ModelAccount      Model = "account"
	ModelVerification Model = "verification"
)

// Operator is a comparison operator in a Where condition.
type Operator string

const (
	OpEq         Operator = "eq"
	OpNe         Operator = "ne"
	OpIn         Operator = "in"
	OpNotIn      Operator = "not_in"
	OpContains   Operator = "contains"
	OpStartsWith Operator = "starts_with"
	OpEndsWith   Operator = "ends_with"
)

// Connector joins a condition to the preceding ones.
type Connector string

const (
	And Connector = "AND"
	Or  Connector = "OR"
)

// Condition is a single field comparison. A zero Connector means And.
type Condition struct {
	Field     string
	Op        Operator
	Value     any
	Connector Connector
}

// Where is an ordered list of conditions.
type Where []Condition

// Eq builds an equality condition, the most common case.
func Eq(field string, value any) Condition {
	return Condition{Field: field, Op: OpEq, Value: value}
}

// Cond builds a condition with an explicit operator.
func Cond(field string, op Operator, value any) Condition {
	return Condition{Field: field, Op: op, Value: value}
}

// OrCond builds a condition joined to the previous ones with OR.
func OrCond(field string, op Operator, value any) Condition {
	return Condition{Field: field, Op: op, Value: value, Connector: Or}
}

// SortBy orders FindMany results.
type SortBy struct {
	Field string
	Desc  bool
}

// Query carries optional FindMany modifiers.
type Query struct {
	Sort   *SortBy
	Limit  int
	Offset int
}

// Adapter is the storage contract consumed by the engine. Implementations
// must be safe for concurrent use and honor context cancellation.
type Adapter interface {
	Create(ctx context.Context, model Model, data map[string]any) (map[string]any, error)

	// FindOne returns ErrNotFound when no record matches.
	FindOne(ctx context.Context, model Model, where Where) (map[string]any, error)

	FindMany(ctx context.Context, model Model, where Where, q Query) ([]map[string]any, error)

	// Update mutates the first matching record and returns it, or
	// ErrNotFound.
	Update(ctx context.Context, model Model, where Where, data map[string]any) (map[string]any, error)

	UpdateMany(ctx context.Context, model Model, where Where, data map[string]any) (int64, error)

	// Delete removes the first matching record; deleting a missing record
	// returns ErrNotFound.
	Delete(ctx context.Context, model Model, where Where) error

	DeleteMany(ctx context.Context, model Model, where Where) (int64, error)
}
