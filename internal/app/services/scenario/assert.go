package scenario

import (
	"fmt"
	"sort"
	"strings"

	domain "github.com/meridianhq/scenario-engine/internal/app/domain/scenario"
)

// evaluateAssertions runs a step's expect block against resp in the fixed
// deterministic clause order: status, blocked, bodyContains,
// bodyNotContains, headerPresent, then headerEquals.<name> in the
// insertion order of the headerEquals map. A step with no expect block
// passes on any non-error response (no assertions are appended).
func evaluateAssertions(expect domain.Expect, resp Response) []domain.AssertionResult {
	if expect.IsZero() {
		return nil
	}

	var results []domain.AssertionResult

	if expect.Status != nil {
		results = append(results, domain.AssertionResult{
			Field:    "status",
			Expected: *expect.Status,
			Actual:   resp.Status,
			Passed:   resp.Status == *expect.Status,
		})
	}

	if expect.Blocked != nil {
		actual := resp.Status == 403 || resp.Status == 429
		results = append(results, domain.AssertionResult{
			Field:    "blocked",
			Expected: *expect.Blocked,
			Actual:   actual,
			Passed:   actual == *expect.Blocked,
		})
	}

	bodyText := resp.BodyText()

	if expect.BodyContains != nil {
		results = append(results, domain.AssertionResult{
			Field:    "bodyContains",
			Expected: *expect.BodyContains,
			Actual:   bodyText,
			Passed:   strings.Contains(bodyText, *expect.BodyContains),
		})
	}

	if expect.BodyNotContains != nil {
		results = append(results, domain.AssertionResult{
			Field:    "bodyNotContains",
			Expected: *expect.BodyNotContains,
			Actual:   bodyText,
			Passed:   !strings.Contains(bodyText, *expect.BodyNotContains),
		})
	}

	if expect.HeaderPresent != nil {
		present := !IsAbsent(resp.HeaderValue(*expect.HeaderPresent))
		results = append(results, domain.AssertionResult{
			Field:    "headerPresent",
			Expected: *expect.HeaderPresent,
			Actual:   present,
			Passed:   present,
		})
	}

	for _, name := range headerEqualsOrder(expect) {
		expected := expect.HeaderEquals[name]
		actual := resp.HeaderValue(name)
		actualStr, isString := actual.(string)
		passed := isString && actualStr == expected
		results = append(results, domain.AssertionResult{
			Field:    fmt.Sprintf("headerEquals.%s", name),
			Expected: expected,
			Actual:   actual,
			Passed:   passed,
		})
	}

	return results
}

// headerEqualsOrder returns the insertion order recorded by
// Expect.WithHeaderEquals, falling back to a sorted order (for
// deterministic test output) when the Expect was built without it, e.g.
// decoded straight from JSON/YAML.
func headerEqualsOrder(expect domain.Expect) []string {
	order := expect.HeaderEqualsOrder()
	if len(order) == len(expect.HeaderEquals) {
		return order
	}
	sorted := make([]string, 0, len(expect.HeaderEquals))
	for name := range expect.HeaderEquals {
		sorted = append(sorted, name)
	}
	sort.Strings(sorted)
	return sorted
}

// assertionsPassed reports whether every assertion result passed.
func assertionsPassed(results []domain.AssertionResult) bool {
	for _, r := range results {
		if !r.Passed {
			return false
		}
	}
	return true
}

// summarizeFailedAssertions builds the error string for a failed step:
// one clause per failing assertion, naming field/expected/actual.
func summarizeFailedAssertions(results []domain.AssertionResult) string {
	var failed []string
	for _, r := range results {
		if !r.Passed {
			failed = append(failed, fmt.Sprintf("%s: expected %v, got %v", r.Field, r.Expected, r.Actual))
		}
	}
	if len(failed) == 0 {
		return "assertion failed"
	}
	return strings.Join(failed, "; ")
}
