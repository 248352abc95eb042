package sql

// Field is a typed column reference. Its predicate methods accept values
// of the column's Go type only.
//
// Usage:
//
//	id := sql.FieldOf[int](emp, "id")
//	q.Where(id.GT(10), id.In(1, 2, 3))
type Field[T any] struct {
	path *Path
}

// FieldOf returns the typed field of the given attribute of r.
func FieldOf[T any](r *Root, attr string) Field[T] {
	return Field[T]{path: r.Get(attr)}
}

// TypedField wraps an existing path.
func TypedField[T any](p *Path) Field[T] { return Field[T]{path: p} }

// Path returns the underlying path.
func (f Field[T]) Path() *Path { return f.path }

// As returns the path with the given output alias.
func (f Field[T]) As(alias string) *Path { return f.path.As(alias) }

// EQ returns a predicate that checks if the field equals the given value.
func (f Field[T]) EQ(v T) *Expression { return EQ(f.path, v) }

// NEQ returns a predicate that checks if the field does not equal the given value.
func (f Field[T]) NEQ(v T) *Expression { return NEQ(f.path, v) }

// GT returns a predicate that checks if the field is greater than the given value.
func (f Field[T]) GT(v T) *Expression { return GT(f.path, v) }

// GE returns a predicate that checks if the field is greater than or equal to the given value.
func (f Field[T]) GE(v T) *Expression { return GE(f.path, v) }

// LT returns a predicate that checks if the field is less than the given value.
func (f Field[T]) LT(v T) *Expression { return LT(f.path, v) }

// LE returns a predicate that checks if the field is less than or equal to the given value.
func (f Field[T]) LE(v T) *Expression { return LE(f.path, v) }

// In returns a predicate that checks if the field value is in the given list.
func (f Field[T]) In(vs ...T) *Expression { return InValues(f.path, vs) }

// NotIn returns a predicate that checks if the field value is not in the given list.
func (f Field[T]) NotIn(vs ...T) *Expression {
	args := make([]any, len(vs))
	for i := range vs {
		args[i] = vs[i]
	}
	return inExpr("notIn", f.path, args, true)
}

// InOpt is like In, but returns the identity predicate for an empty list.
func (f Field[T]) InOpt(vs ...T) *Expression {
	if len(vs) == 0 {
		return Identity()
	}
	return f.In(vs...)
}

// Between returns a predicate that checks if the field is within [lo, hi].
func (f Field[T]) Between(lo, hi T) *Expression { return Between(f.path, lo, hi) }

// IsNull returns a predicate that checks if the field is NULL.
func (f Field[T]) IsNull() *Expression { return IsNull(f.path) }

// IsNotNull returns a predicate that checks if the field is not NULL.
func (f Field[T]) IsNotNull() *Expression { return IsNotNull(f.path) }

// Asc returns an ascending order on the field.
func (f Field[T]) Asc() *Order { return Asc(f.path) }

// Desc returns a descending order on the field.
func (f Field[T]) Desc() *Order { return Desc(f.path) }

// StringField is a typed string column with pattern predicates.
//
// Usage:
//
//	name := sql.StringFieldOf(emp, "lastName")
//	q.Where(name.StartsWith("Sm"))
type StringField struct {
	Field[string]
}

// StringFieldOf returns the string field of the given attribute of r.
func StringFieldOf(r *Root, attr string) StringField {
	return StringField{FieldOf[string](r, attr)}
}

// Contains returns a predicate that checks if the field contains the given substring.
func (f StringField) Contains(v string) *Expression { return Like(f.path, v) }

// NotContains returns a predicate that checks if the field does not contain the given substring.
func (f StringField) NotContains(v string) *Expression { return NotLike(f.path, v) }

// HasPrefix returns a predicate that checks if the field has the given prefix.
func (f StringField) HasPrefix(v string) *Expression { return StartsWith(f.path, v) }

// HasSuffix returns a predicate that checks if the field has the given suffix.
func (f StringField) HasSuffix(v string) *Expression { return EndsWith(f.path, v) }

// EqualFold returns a predicate that checks if the lower-cased field equals
// the lower-cased value.
func (f StringField) EqualFold(v string) *Expression {
	return EQ(Lower(f.path), Lower(Lit(v)))
}
