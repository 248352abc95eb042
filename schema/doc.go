// Package schema maps Go record types to database tables and columns.
//
// A record type declares its table through the Tabler interface and its
// columns through struct tags:
//
//	type Employee struct {
//	    ID        int     `column:"ID,pk"`
//	    FirstName string  `column:"FIRST_NAME"`
//	    LastName  string  // LAST_NAME
//	    Salary    float64 // SALARY
//	    Enabled   bool    // ENABLED
//	}
//
//	func (Employee) TableName() string { return "EMPLOYEES" }
//
// Types are registered on an explicit Registry:
//
//	reg := schema.NewRegistry()
//	e, err := reg.Register(Employee{})
//
// Registration is idempotent and fails fast with a criteria.ConfigurationError
// when the table metadata is missing. Paths reference columns by attribute
// name, the camelCase form of the field name ("lastName"), or by the field
// name itself.
//
// Custom metadata sources plug in through the Provider interface:
//
//	reg := schema.NewRegistry(schema.WithProvider(myProvider))
package schema
