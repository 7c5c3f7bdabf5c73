// Package transform reconciles heterogeneous export schemas into the
// canonical staging shape.
//
// The alias policy is data-driven: each canonical field carries an ordered
// list of accepted source spellings, and Resolve matches them against actual
// headers case- and space-insensitively. Candidate order is the tie-break:
// the first alias present wins, not the closest one.
package transform

import "strings"

// Resolve finds the original column name matching the first candidate alias
// present in columns. Both sides are normalized by lower-casing and removing
// all spaces. Returns ("", false) when no candidate matches.
func Resolve(columns []string, candidates []string) (string, bool) {
	norm := make(map[string]string, len(columns))
	for _, c := range columns {
		k := normalizeName(c)
		if _, exists := norm[k]; !exists {
			norm[k] = c
		}
	}
	for _, cand := range candidates {
		if orig, ok := norm[normalizeName(cand)]; ok {
			return orig, true
		}
	}
	return "", false
}

func normalizeName(s string) string {
	return strings.ReplaceAll(strings.ToLower(s), " ", "")
}

// Canonical field aliases accepted across export vintages. Order matters:
// earlier spellings take precedence when an export carries several.
var (
	AliasCustomerID = []string{"CustomerID", "Customer ID", "customer_id", "Id"}
	AliasMonthly    = []string{"MonthlyCharges", "Monthly Charges", "monthly_charges"}
	AliasTotal      = []string{"TotalCharges", "Total Charges", "total_charges"}
	AliasTenure     = []string{"tenure", "Tenure", "tenure_months", "Tenure Months", "TenureMonths"}
	AliasChurn      = []string{"Churn Label", "Churn", "ChurnLabel", "churn_label"}
)
