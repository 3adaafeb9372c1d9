package query

import (
	"context"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Confirmer asks the operator whether to go ahead with an oversized pull.
// Confirm blocks until an answer is available.
type Confirmer interface {
	Confirm(ctx context.Context, prompt string) (bool, error)
}

// ConfirmFunc adapts a function to the Confirmer interface.
type ConfirmFunc func(ctx context.Context, prompt string) (bool, error)

// Confirm calls f.
func (f ConfirmFunc) Confirm(ctx context.Context, prompt string) (bool, error) {
	return f(ctx, prompt)
}

// gatePrompt is the message shown at the safety gate.
func gatePrompt(table string, rows, threshold int64) string {
	p := message.NewPrinter(language.English)
	return p.Sprintf("You are trying to fetch a very large dataset from %s.\n"+
		"The estimated number of combinations is %d (safety threshold %d).\n"+
		"Enable auto-accept for large pulls to skip this prompt.\n"+
		"Do you wish to continue?", table, rows, threshold)
}
