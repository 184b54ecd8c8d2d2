package cache

import (
	"fmt"
	"strings"
	"time"
)

// TTLRule duración para las claves que empiezan por Prefix.
type TTLRule struct {
	Prefix string
	TTL    time.Duration
}

// TTLFor resuelve el TTL de key: coincidencia exacta, luego el prefijo más largo,
// luego el TTL por defecto.
func (s *Store) TTLFor(key string) time.Duration {
	for _, r := range s.rules {
		if r.Prefix == key {
			return r.TTL
		}
	}
	best := -1
	ttl := s.defaultTTL
	for _, r := range s.rules {
		if strings.HasPrefix(key, r.Prefix) && len(r.Prefix) > best {
			best = len(r.Prefix)
			ttl = r.TTL
		}
	}
	return ttl
}

// ParseTTLRules interpreta "prefijo=duración" separados por coma,
// por ejemplo "products=5s,catalog:=1m".
func ParseTTLRules(raw string) ([]TTLRule, error) {
	var rules []TTLRule
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		prefix, dur, ok := strings.Cut(part, "=")
		if !ok || strings.TrimSpace(prefix) == "" {
			return nil, fmt.Errorf("regla TTL inválida %q", part)
		}
		d, err := time.ParseDuration(strings.TrimSpace(dur))
		if err != nil {
			return nil, fmt.Errorf("regla TTL %q: %w", part, err)
		}
		rules = append(rules, TTLRule{Prefix: strings.TrimSpace(prefix), TTL: d})
	}
	return rules, nil
}
