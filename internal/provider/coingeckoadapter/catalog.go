package coingeckoadapter

import (
	"strings"
	"time"

	"coingateway/internal/provider/coingecko"
)

// Catalog is an immutable symbol -> coin id directory built from /coins/list.
type Catalog struct {
	ids     map[string]string
	builtAt time.Time
}

// NewCatalog indexes entries by lower-case symbol. When several coins share a
// symbol the later entry wins; overrides always take precedence.
func NewCatalog(entries []coingecko.CoinListEntry, overrides map[string]string, builtAt time.Time) *Catalog {
	ids := make(map[string]string, len(entries)+len(overrides))
	for _, e := range entries {
		if e.Symbol == "" || e.ID == "" {
			continue
		}
		ids[strings.ToLower(e.Symbol)] = e.ID
	}
	for sym, id := range overrides {
		ids[strings.ToLower(sym)] = id
	}
	return &Catalog{ids: ids, builtAt: builtAt}
}

// ID returns the coin id for symbol.
func (c *Catalog) ID(symbol string) (string, bool) {
	if c == nil {
		return "", false
	}
	id, ok := c.ids[strings.ToLower(symbol)]
	return id, ok
}

func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.ids)
}

func (c *Catalog) BuiltAt() time.Time { return c.builtAt }

// Entries returns a copy of the directory.
func (c *Catalog) Entries() map[string]string {
	out := make(map[string]string, c.Len())
	if c == nil {
		return out
	}
	for k, v := range c.ids {
		out[k] = v
	}
	return out
}
