package upstream

import "strings"

// tokenFields lists where login responses have been seen to carry the issued
// token, in lookup order. Each name is tried at the top level first, then
// nested under "data".
var tokenFields = []string{"token", "access_token", "accessToken"}

// ExtractToken finds the bearer token in a login response payload. It
// returns "" when none of the known locations holds a non-empty string.
func ExtractToken(payload any) string {
	root, ok := payload.(map[string]any)
	if !ok {
		return ""
	}

	if t := firstString(root, tokenFields); t != "" {
		return t
	}

	if data, ok := root["data"].(map[string]any); ok {
		return firstString(data, tokenFields)
	}
	return ""
}

// StripToken returns a copy of a login payload with every token location
// removed, so the token only ever reaches the browser as an HttpOnly cookie.
func StripToken(payload any) any {
	root, ok := payload.(map[string]any)
	if !ok {
		return payload
	}

	out := make(map[string]any, len(root))
	for k, v := range root {
		out[k] = v
	}
	for _, f := range tokenFields {
		delete(out, f)
	}

	if data, ok := root["data"].(map[string]any); ok {
		inner := make(map[string]any, len(data))
		for k, v := range data {
			inner[k] = v
		}
		for _, f := range tokenFields {
			delete(inner, f)
		}
		out["data"] = inner
	}
	return out
}

func firstString(m map[string]any, keys []string) string {
	for _, k := range keys {
		if s, ok := m[k].(string); ok && strings.TrimSpace(s) != "" {
			return strings.TrimSpace(s)
		}
	}
	return ""
}
