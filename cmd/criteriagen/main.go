// criteriagen generates record types from table descriptions or live
// databases.
//
//	criteriagen inspect --driver sqlite --dsn file:hr.db > tables.yaml
//	criteriagen generate --tables tables.yaml --target ./records --registry
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "criteriagen:", err)
		os.Exit(1)
	}
}
