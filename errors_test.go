package criteria_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/criteria"
)

func TestConfigurationError(t *testing.T) {
	t.Run("Error", func(t *testing.T) {
		err := criteria.NewConfigurationError("Employee", "missing table metadata")
		assert.Equal(t, "criteria: configuration error on Employee: missing table metadata", err.Error())
	})

	t.Run("Is", func(t *testing.T) {
		err := criteria.NewConfigurationError("query", "no from source")
		assert.True(t, errors.Is(err, criteria.ErrConfiguration))
		assert.False(t, errors.Is(err, criteria.ErrExpression))
	})

	t.Run("IsConfigurationError", func(t *testing.T) {
		err := criteria.NewConfigurationError("query", "no from source")
		assert.True(t, criteria.IsConfigurationError(err))

		wrapped := fmt.Errorf("wrapper: %w", err)
		assert.True(t, criteria.IsConfigurationError(wrapped))

		assert.True(t, criteria.IsConfigurationError(criteria.ErrConfiguration))
		assert.False(t, criteria.IsConfigurationError(errors.New("other error")))
		assert.False(t, criteria.IsConfigurationError(nil))
	})

	t.Run("Unwrap", func(t *testing.T) {
		cause := errors.New("boom")
		err := &criteria.ConfigurationError{Subject: "Employee", Cause: cause}
		assert.ErrorIs(t, err, cause)
		assert.Equal(t, "criteria: configuration error on Employee: boom", err.Error())
	})
}

func TestExpressionError(t *testing.T) {
	err := criteria.NewExpressionError("in", "values must not be empty")
	assert.Equal(t, `criteria: malformed "in" expression: values must not be empty`, err.Error())
	assert.True(t, criteria.IsExpressionError(err))
	assert.True(t, criteria.IsExpressionError(fmt.Errorf("build: %w", err)))
	assert.False(t, criteria.IsExpressionError(criteria.ErrConfiguration))
	assert.False(t, criteria.IsExpressionError(nil))

	anon := &criteria.ExpressionError{Message: "bad"}
	assert.Equal(t, "criteria: malformed expression: bad", anon.Error())
}

func TestDataAccessError(t *testing.T) {
	cause := errors.New("connection reset")
	err := &criteria.DataAccessError{
		Op:            "read",
		Table:         "EMPLOYEES",
		CorrelationID: "abc",
		Start:         1000,
		End:           2000,
		Err:           cause,
	}
	assert.Equal(t, "criteria: read EMPLOYEES rows [1000, 2000) (correlation_id=abc): connection reset", err.Error())
	assert.ErrorIs(t, err, cause)
	assert.ErrorIs(t, err, criteria.ErrDataAccess)
	assert.True(t, criteria.IsDataAccessError(fmt.Errorf("wrapped: %w", err)))
	assert.False(t, criteria.IsDataAccessError(cause))

	count := &criteria.DataAccessError{Op: "count", Err: cause}
	assert.Equal(t, "criteria: count: connection reset", count.Error())
}

func TestRowMappingError(t *testing.T) {
	cause := errors.New("not a number")
	err := &criteria.RowMappingError{Field: "Salary", Column: "SALARY", Value: "abc", Err: cause}
	assert.Equal(t, `criteria: mapping column "SALARY" into field "Salary" (value abc): not a number`, err.Error())
	assert.True(t, criteria.IsRowMappingError(err))
	assert.ErrorIs(t, err, cause)
	assert.False(t, criteria.IsRowMappingError(nil))
}

func TestAggregateError(t *testing.T) {
	t.Run("nil when empty", func(t *testing.T) {
		assert.NoError(t, criteria.NewAggregateError())
		assert.NoError(t, criteria.NewAggregateError(nil, nil))
	})

	t.Run("single error passes through", func(t *testing.T) {
		e := errors.New("only")
		assert.Equal(t, e, criteria.NewAggregateError(nil, e))
	})

	t.Run("multiple errors", func(t *testing.T) {
		e1, e2 := errors.New("first"), errors.New("second")
		err := criteria.NewAggregateError(e1, nil, e2)
		var agg *criteria.AggregateError
		require.ErrorAs(t, err, &agg)
		assert.Len(t, agg.Errors, 2)
		assert.ErrorIs(t, err, e2)
		assert.Contains(t, err.Error(), "[1] first")
		assert.Contains(t, err.Error(), "[2] second")
	})
}
