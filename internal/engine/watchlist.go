package engine

import (
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// Watchlist is a set of lower-cased publisher names flagged as high risk
// (rights-claim takedowns, counterfeit complaints). Read-only after
// construction.
type Watchlist map[string]struct{}

// NewWatchlist builds a watchlist from publisher names, normalizing case
// and whitespace.
func NewWatchlist(names ...string) Watchlist {
	w := make(Watchlist, len(names))
	for _, n := range names {
		n = strings.ToLower(strings.TrimSpace(n))
		if n != "" {
			w[n] = struct{}{}
		}
	}
	return w
}

// DefaultWatchlist returns the built-in set of flagged publishers.
func DefaultWatchlist() Watchlist {
	return NewWatchlist(
		"test prep company",
		"workbook publisher",
	)
}

// LoadWatchlist reads a YAML file containing a list of publisher names.
func LoadWatchlist(path string) (Watchlist, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "engine: read watchlist %s", path)
	}
	var names []string
	if err := yaml.Unmarshal(data, &names); err != nil {
		return nil, eris.Wrapf(err, "engine: parse watchlist %s", path)
	}
	return NewWatchlist(names...), nil
}

// Contains reports whether the publisher is on the watchlist. Matching is
// case-insensitive.
func (w Watchlist) Contains(publisher string) bool {
	_, ok := w[strings.ToLower(strings.TrimSpace(publisher))]
	return ok
}
