package domain

import "github.com/google/uuid"

// FilterOp is one of the fixed comparison operators the listing engine
// supports. This is intentionally not a query language.
type FilterOp string

const (
	OpEq         FilterOp = "eq"
	OpNeq        FilterOp = "neq"
	OpGt         FilterOp = "gt"
	OpLt         FilterOp = "lt"
	OpGte        FilterOp = "gte"
	OpLte        FilterOp = "lte"
	OpContains   FilterOp = "contains"
	OpStartsWith FilterOp = "starts_with"
)

func (o FilterOp) String() string { return string(o) }

func (o FilterOp) IsValid() bool {
	switch o {
	case OpEq, OpNeq, OpGt, OpLt, OpGte, OpLte, OpContains, OpStartsWith:
		return true
	}
	return false
}

// FieldFilter matches objects whose data for one module field satisfies the
// operator. Filters on a listing are AND-composed.
type FieldFilter struct {
	ModuleName string
	FieldKey   string
	Op         FilterOp
	Value      any
}

// SearchFieldKeys is the fixed set of well-known field keys free-text
// search scans across all modules.
var SearchFieldKeys = []string{
	"name", "first_name", "last_name", "email", "title", "company_name", "phone",
}

// ObjectFilter carries filtering/pagination parameters for object listings.
// Results are always ordered newest-first by creation time.
type ObjectFilter struct {
	ObjectTypeID *uuid.UUID
	Search       *string
	Filters      []FieldFilter
	Page         int
	Limit        int
}

const (
	DefaultPageLimit = 50
	MaxPageLimit     = 200
)

// Normalize applies defaults and clamps pagination values.
func (f *ObjectFilter) Normalize() {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit <= 0 {
		f.Limit = DefaultPageLimit
	}
	if f.Limit > MaxPageLimit {
		f.Limit = MaxPageLimit
	}
}

// Offset converts page/limit into a row offset.
func (f *ObjectFilter) Offset() int {
	return (f.Page - 1) * f.Limit
}
