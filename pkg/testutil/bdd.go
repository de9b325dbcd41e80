package testutil

import "testing"

// Step runs one clause of a scenario as a named subtest.
type Step func(t *testing.T, desc string, fn func(t *testing.T))

func clause(keyword string) Step {
	return func(t *testing.T, desc string, fn func(t *testing.T)) {
		t.Helper()
		t.Run(keyword+" "+desc, fn)
	}
}

// Scenario clauses. Nesting them reads as a Given/When/Then outline in
// `go test -v` output.
var (
	Given = clause("Given")
	When  = clause("When")
	Then  = clause("Then")
	And   = clause("And")
)
