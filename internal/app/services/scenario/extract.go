package scenario

import domain "github.com/meridianhq/scenario-engine/internal/app/domain/scenario"

// applyExtractRules computes each extract rule's value from resp and
// writes it into ctx under its variable name, including when the value is
// Absent. Extraction runs after a successful request and before
// assertions. ctx must not be shared with a concurrently running step;
// callers that run steps concurrently should use computeExtractRules and
// merge the result into the shared context themselves, serialized.
func applyExtractRules(rules map[string]domain.ExtractRule, resp Response, ctx map[string]any) {
	for name, value := range computeExtractRules(rules, resp) {
		ctx[name] = value
	}
}

// computeExtractRules evaluates each extract rule against resp and returns
// the resulting name->value map without touching any shared state, so it
// is safe to call from multiple goroutines evaluating sibling steps.
func computeExtractRules(rules map[string]domain.ExtractRule, resp Response) map[string]any {
	out := make(map[string]any, len(rules))
	for name, rule := range rules {
		out[name] = extractValue(rule, resp)
	}
	return out
}

func extractValue(rule domain.ExtractRule, resp Response) any {
	switch rule.From {
	case domain.ExtractFromStatus:
		return resp.Status
	case domain.ExtractFromHeader:
		if rule.Path == "" {
			return headersToMap(resp.Headers)
		}
		return resp.HeaderValue(rule.Path)
	case domain.ExtractFromBody:
		if rule.Path == "" {
			return resp.Body
		}
		bodyMap, ok := resp.Body.(map[string]any)
		if !ok {
			return Absent
		}
		return getPath(bodyMap, rule.Path)
	default:
		return Absent
	}
}

func headersToMap(h map[string][]string) map[string]any {
	out := make(map[string]any, len(h))
	for name, values := range h {
		if len(values) > 0 {
			out[name] = values[0]
		}
	}
	return out
}
