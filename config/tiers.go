package config

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"propDesk/internal/domain"
)

// TierFile is the YAML layout of a tier catalogue:
//
//	tiers:
//	  - name: starter
//	    price: "200"
//	    start_balance: "5000"
type TierFile struct {
	Tiers []TierEntry `yaml:"tiers"`
}

// TierEntry is one tier in a TierFile. Amounts are strings to keep them exact.
type TierEntry struct {
	Name         string `yaml:"name"`
	Price        string `yaml:"price"`
	StartBalance string `yaml:"start_balance"`
}

// TierCatalog maps lower-case tier names to tiers.
type TierCatalog map[string]domain.Tier

// DefaultTiers returns the built-in tiers.
func DefaultTiers() TierCatalog {
	return TierCatalog{
		"starter": {Name: "starter", Price: decimal.NewFromInt(200), StartBalance: decimal.NewFromInt(5000)},
		"pro":     {Name: "pro", Price: decimal.NewFromInt(500), StartBalance: decimal.NewFromInt(10000)},
		"elite":   {Name: "elite", Price: decimal.NewFromInt(1000), StartBalance: decimal.NewFromInt(25000)},
	}
}

// LoadTiers reads a tier catalogue from path, or returns the defaults when path is empty.
func LoadTiers(path string) (TierCatalog, error) {
	if path == "" {
		return DefaultTiers(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read tiers file: %w", err)
	}
	return ParseTiers(data)
}

// ParseTiers decodes a YAML tier catalogue.
func ParseTiers(data []byte) (TierCatalog, error) {
	var f TierFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse tiers: %w", err)
	}
	if len(f.Tiers) == 0 {
		return nil, fmt.Errorf("tiers file defines no tiers")
	}

	catalog := make(TierCatalog, len(f.Tiers))
	for _, e := range f.Tiers {
		name := strings.ToLower(strings.TrimSpace(e.Name))
		if name == "" {
			return nil, fmt.Errorf("tier with empty name")
		}
		if _, dup := catalog[name]; dup {
			return nil, fmt.Errorf("duplicate tier %q", name)
		}
		balance, err := decimal.NewFromString(e.StartBalance)
		if err != nil || !balance.IsPositive() {
			return nil, fmt.Errorf("tier %q: start_balance must be a positive number", name)
		}
		price := decimal.Zero
		if e.Price != "" {
			if price, err = decimal.NewFromString(e.Price); err != nil || price.IsNegative() {
				return nil, fmt.Errorf("tier %q: price must be a non-negative number", name)
			}
		}
		catalog[name] = domain.Tier{Name: name, Price: price, StartBalance: balance}
	}
	return catalog, nil
}

// Lookup finds a tier by name, case-insensitively.
func (c TierCatalog) Lookup(name string) (domain.Tier, bool) {
	t, ok := c[strings.ToLower(strings.TrimSpace(name))]
	return t, ok
}

// Names lists the tier names in ascending start-balance order.
func (c TierCatalog) Names() []string {
	names := make([]string, 0, len(c))
	for n := range c {
		names = append(names, n)
	}
	sort.Slice(names, func(i, j int) bool {
		return c[names[i]].StartBalance.LessThan(c[names[j]].StartBalance)
	})
	return names
}
