// Package util holds small helpers for keeping secrets out of logs.
package util

import (
	"net/url"
	"strings"
)

// MaskKey keeps the first and last few characters of a credential.
func MaskKey(key string) string {
	key = strings.TrimSpace(key)
	switch n := len(key); {
	case n > 8:
		return key[:4] + "..." + key[n-4:]
	case n > 4:
		return key[:2] + "..." + key[n-2:]
	case n > 2:
		return key[:1] + "..." + key[n-1:]
	default:
		return key
	}
}

// MaskSensitiveQuery masks credential-like values in a raw query string.
func MaskSensitiveQuery(raw string) string {
	if raw == "" {
		return ""
	}
	parts := strings.Split(raw, "&")
	changed := false
	for i, part := range parts {
		if part == "" {
			continue
		}
		keyPart, valuePart, _ := strings.Cut(part, "=")
		decodedKey, errKey := url.QueryUnescape(keyPart)
		if errKey != nil {
			decodedKey = keyPart
		}
		if !isSensitiveParam(decodedKey) {
			continue
		}
		decodedValue, errValue := url.QueryUnescape(valuePart)
		if errValue != nil {
			decodedValue = valuePart
		}
		parts[i] = keyPart + "=" + url.QueryEscape(MaskKey(decodedValue))
		changed = true
	}
	if !changed {
		return raw
	}
	return strings.Join(parts, "&")
}

func isSensitiveParam(key string) bool {
	key = strings.ToLower(strings.TrimSpace(key))
	if key == "" {
		return false
	}
	key = strings.TrimSuffix(key, "[]")
	if key == "key" || strings.Contains(key, "access_key") || strings.Contains(key, "secret") || strings.Contains(key, "token") {
		return true
	}
	return strings.Contains(key, "api_key") || strings.Contains(key, "apikey")
}
