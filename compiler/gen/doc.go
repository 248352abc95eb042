// Package gen generates record types for the criteria compiler and the
// transfer package from table definitions.
//
// Each table becomes one struct in its own file. The struct carries a
// column tag per field and implements schema.Tabler, so it can be
// registered in a schema.Registry without further metadata:
//
//	// Employee is a record of the EMPLOYEES table.
//	type Employee struct {
//		ID        int64   `column:"ID,pk"`
//		FirstName string  `column:"FIRST_NAME"`
//		Salary    *float64 `column:"SALARY"`
//	}
//
//	func (Employee) TableName() string {
//		return "EMPLOYEES"
//	}
//
// Table definitions come from the load package, either parsed from YAML or
// inspected from a live database:
//
//	tables, err := load.LoadFile("tables.yaml")
//	if err != nil {
//		return err
//	}
//	g, err := gen.New(gen.WithTarget("./records"), gen.WithRegistry(true))
//	if err != nil {
//		return err
//	}
//	return g.Generate(ctx, tables)
//
// # Error Handling
//
// The package uses structured error types:
//
//   - TableError: invalid table or column definitions
//   - ConfigError: invalid generator options
//   - GenerationError: rendering, formatting or writing failures
//
// Each type matches its sentinel with errors.Is:
//
//	if errors.Is(err, gen.ErrInvalidTable) {
//		// fix the table description
//	}
package gen
