package scenario

import (
	"crypto/rand"
	"encoding/json"
	"fmt"
	"math/big"
	"regexp"
	"strconv"
	"time"

	domain "github.com/meridianhq/scenario-engine/internal/app/domain/scenario"
)

var templateToken = regexp.MustCompile(`\{\{([A-Za-z0-9_]+)\}\}`)

const randomTokenLength = 8
const randomTokenAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// resolveTemplate substitutes every {{name}} occurrence in s. Built-ins
// (random, random_ip, timestamp) produce a fresh value per occurrence;
// names present in ctx are stringified; anything else is left untouched.
func resolveTemplate(s string, ctx map[string]any) string {
	return templateToken.ReplaceAllStringFunc(s, func(match string) string {
		name := templateToken.FindStringSubmatch(match)[1]
		if value, ok := resolveBuiltin(name); ok {
			return value
		}
		if value, ok := ctx[name]; ok {
			return stringifyValue(value)
		}
		return match
	})
}

func resolveBuiltin(name string) (string, bool) {
	switch name {
	case "random":
		return randomToken(randomTokenLength), true
	case "random_ip":
		return randomIP(), true
	case "timestamp":
		return strconv.FormatInt(time.Now().UnixMilli(), 10), true
	default:
		return "", false
	}
}

func randomToken(n int) string {
	out := make([]byte, n)
	alphabetLen := big.NewInt(int64(len(randomTokenAlphabet)))
	for i := range out {
		idx, err := rand.Int(rand.Reader, alphabetLen)
		if err != nil {
			// crypto/rand failure is not expected on any supported platform;
			// fall back to a fixed character rather than panicking.
			out[i] = randomTokenAlphabet[0]
			continue
		}
		out[i] = randomTokenAlphabet[idx.Int64()]
	}
	return string(out)
}

func randomIP() string {
	octets := make([]string, 4)
	for i := range octets {
		n, err := rand.Int(rand.Reader, big.NewInt(255))
		if err != nil {
			octets[i] = "1"
			continue
		}
		octets[i] = strconv.FormatInt(n.Int64()+1, 10)
	}
	return fmt.Sprintf("%s.%s.%s.%s", octets[0], octets[1], octets[2], octets[3])
}

// stringifyValue renders a context value the way template substitution
// requires: numbers decimalized, booleans as true/false, objects as JSON.
func stringifyValue(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case bool:
		if v {
			return "true"
		}
		return "false"
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	default:
		encoded, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(encoded)
	}
}

// resolveHeaders resolves every header value template, leaving names
// untouched.
func resolveHeaders(headers map[string]string, ctx map[string]any) map[string]string {
	if len(headers) == 0 {
		return nil
	}
	out := make(map[string]string, len(headers))
	for name, value := range headers {
		out[name] = resolveTemplate(value, ctx)
	}
	return out
}

// resolveQuery resolves every query-value template, leaving names
// untouched.
func resolveQuery(query map[string]string, ctx map[string]any) map[string]string {
	if len(query) == 0 {
		return nil
	}
	out := make(map[string]string, len(query))
	for name, value := range query {
		out[name] = resolveTemplate(value, ctx)
	}
	return out
}

// resolveBody resolves the request body. A structured body is serialized
// to JSON text, resolved as a string, and returned as the final request
// body bytes with no re-parse required before sending (spec's
// serialize-then-substitute rule).
func resolveBody(body domain.Body, ctx map[string]any) (string, error) {
	if body.IsZero() {
		return "", nil
	}
	if !body.IsStructured() {
		return resolveTemplate(body.Raw, ctx), nil
	}
	encoded, err := json.Marshal(body.Structured)
	if err != nil {
		return "", fmt.Errorf("serialize structured body: %w", err)
	}
	return resolveTemplate(string(encoded), ctx), nil
}
