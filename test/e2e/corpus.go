// Package e2e runs the full pipeline over a small labeled corpus and checks
// retrieval quality end to end.
package e2e

import (
	"fmt"

	"github.com/hyperjump/chizu/internal/models"
)

// QueryCase pairs a query with the document expected among its top hits.
type QueryCase struct {
	Query      string
	ExpectedID string
}

// Corpus is a small fixed set of support tickets spanning three themes.
type Corpus struct {
	Documents []models.DocumentInput
	Queries   []QueryCase
}

// BuildCorpus returns the fixed test corpus. Texts are long enough that
// every document survives chunking and themes are lexically distinct.
func BuildCorpus() *Corpus {
	themes := []struct {
		prefix string
		texts  []string
	}{
		{"print", []string{
			"The office printer jams every time paper is loaded from the rear tray, leaving torn sheets inside the feed mechanism.",
			"Print jobs queue up but never complete; the printer display shows a paper feed error even with a full tray.",
			"Toner smears across the page and the printer makes a grinding noise when pulling paper through the rollers.",
		}},
		{"auth", []string{
			"Users cannot log in to the customer portal; the session token expires immediately after authentication succeeds.",
			"Password reset emails for the portal never arrive, so locked-out users cannot regain access to their accounts.",
			"Single sign-on redirects in a loop between the portal and the identity provider without establishing a session.",
		}},
		{"billing", []string{
			"The invoice total does not match the sum of the order line items when a discount code is applied at checkout.",
			"Recurring billing charged a customer twice in the same cycle and the duplicate charge does not appear in the ledger.",
			"Tax is calculated on the pre-discount amount, inflating invoice totals for every order with a promotion.",
		}},
	}

	c := &Corpus{}
	for _, th := range themes {
		for i, text := range th.texts {
			c.Documents = append(c.Documents, models.DocumentInput{
				ID:   fmt.Sprintf("%s-%d", th.prefix, i),
				Text: text,
			})
		}
	}
	c.Queries = []QueryCase{
		{Query: "printer jams paper tray", ExpectedID: "print-0"},
		{Query: "session token expires login portal", ExpectedID: "auth-0"},
		{Query: "invoice total discount line items", ExpectedID: "billing-0"},
		{Query: "password reset emails never arrive", ExpectedID: "auth-1"},
	}
	return c
}
