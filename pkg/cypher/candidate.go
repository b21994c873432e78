// Package cypher turns natural-language questions into Cypher queries with a
// bounded generate and validate loop, and executes them with repair on error.
package cypher

import "slices"

// NoErrorsYet seeds the error list of a fresh candidate so that at least one
// validation round runs.
const NoErrorsYet = "N/A"

// LastCandidate names the fallback used when validation never converges: the
// most recent candidate is returned whether or not it validated.
const LastCandidate = "last_candidate"

// Candidate is a query under review together with the validator's diagnostics.
type Candidate struct {
	Text   string   `json:"cypher"`
	Errors []string `json:"errors"`
}

// Draft returns the candidate for freshly generated text.
func Draft(text string) Candidate {
	return Candidate{Text: text, Errors: []string{NoErrorsYet}}
}

// Valid reports whether the validator found nothing to fix.
func (c Candidate) Valid() bool {
	return len(c.Errors) == 0
}

func (c Candidate) clone() Candidate {
	return Candidate{Text: c.Text, Errors: slices.Clone(c.Errors)}
}
