package knowledge

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultCustomers is the registry used when no customers file is configured
var DefaultCustomers = []string{
	"HealthPlus",
	"TechGiant",
	"Global Mart",
	"Global Retail",
	"FreshMarket",
	"Detroit Motors",
	"MediLife",
}

// Registry is an immutable, ordered set of known customer names.
// Matching is case-insensitive; order decides which customer wins when a query names several.
type Registry struct {
	names   []string
	lowered []string
}

// NewRegistry builds a registry, dropping blanks and case-insensitive duplicates
func NewRegistry(names []string) *Registry {
	r := &Registry{}
	seen := make(map[string]bool, len(names))
	for _, n := range names {
		n = strings.TrimSpace(n)
		l := strings.ToLower(n)
		if n == "" || seen[l] {
			continue
		}
		seen[l] = true
		r.names = append(r.names, n)
		r.lowered = append(r.lowered, l)
	}
	return r
}

// Names returns the customer names in registry order
func (r *Registry) Names() []string {
	out := make([]string, len(r.names))
	copy(out, r.names)
	return out
}

// Len returns the number of known customers
func (r *Registry) Len() int {
	return len(r.names)
}

// ActiveCustomer returns the first known customer whose name occurs in the query
func (r *Registry) ActiveCustomer(query string) (string, bool) {
	if r == nil {
		return "", false
	}
	q := strings.ToLower(query)
	for i, l := range r.lowered {
		if strings.Contains(q, l) {
			return r.names[i], true
		}
	}
	return "", false
}

// Others returns the lower-cased names of every customer except active
func (r *Registry) Others(active string) []string {
	a := strings.ToLower(active)
	out := make([]string, 0, len(r.lowered))
	for _, l := range r.lowered {
		if l != a {
			out = append(out, l)
		}
	}
	return out
}

// NestedNames lists pairs where one customer name is contained in another.
// Such pairs make the substring match ambiguous and are reported at startup.
func (r *Registry) NestedNames() [][2]string {
	var pairs [][2]string
	for i, inner := range r.lowered {
		for j, outer := range r.lowered {
			if i != j && strings.Contains(outer, inner) {
				pairs = append(pairs, [2]string{r.names[i], r.names[j]})
			}
		}
	}
	return pairs
}

type registryFile struct {
	Customers []string `yaml:"customers"`
}

// LoadRegistry reads a YAML file of the form `customers: [..]`
func LoadRegistry(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read customers file: %w", err)
	}

	var f registryFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse customers YAML: %w", err)
	}
	if len(f.Customers) == 0 {
		return nil, fmt.Errorf("customers file %s lists no customers", path)
	}
	return NewRegistry(f.Customers), nil
}
