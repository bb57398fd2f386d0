package tutor

import (
	"sort"
	"strings"
)

// Misconception is a known error pattern the diagnosis node can name.
type Misconception struct {
	ID          string
	Label       string
	Description string
	Examples    []string
}

var seedMisconceptions = []Misconception{
	{
		ID:          "linearity",
		Label:       "Assumed linearity",
		Description: "Treats a non-linear operation as if it distributes; e.g., (a+b)² = a² + b²",
		Examples:    []string{"(x+3)² = x² + 9", "√(a+b) = √a + √b"},
	},
	{
		ID:          "operation-confusion",
		Label:       "Operation confusion",
		Description: "Applies the wrong operation; e.g., multiplies when the problem calls for division",
		Examples:    []string{"3/4 of 20 computed as 20 ÷ 3 × 4", "area computed with the perimeter formula"},
	},
	{
		ID:          "sign-error",
		Label:       "Sign error",
		Description: "Loses or flips a negative sign, often when expanding brackets or moving terms",
		Examples:    []string{"-(x - 2) = -x - 2", "x + 5 = 2 solved as x = 7"},
	},
	{
		ID:          "order-of-operations",
		Label:       "Order of operations",
		Description: "Evaluates left to right instead of following BIDMAS",
		Examples:    []string{"2 + 3 × 4 = 20", "10 - 2² = 64"},
	},
	{
		ID:          "common-denominator",
		Label:       "Missing common denominator",
		Description: "Adds or subtracts fractions by combining numerators and denominators directly",
		Examples:    []string{"1/2 + 1/3 = 2/5", "3/4 - 1/2 = 2/2"},
	},
	{
		ID:          "cancellation",
		Label:       "Invalid cancellation",
		Description: "Cancels terms rather than common factors across a fraction",
		Examples:    []string{"(x + 4)/4 = x", "(2x + 6)/2 = x + 6"},
	},
	{
		ID:          "unit-confusion",
		Label:       "Unit confusion",
		Description: "Mixes units or converts with the wrong factor",
		Examples:    []string{"1 m² = 100 cm²", "2 hours 30 minutes = 2.3 hours"},
	},
}

// taxonomy is the package-level misconception registry, keyed by ID.
var taxonomy map[string]*Misconception

func init() {
	taxonomy = make(map[string]*Misconception, len(seedMisconceptions))
	for i := range seedMisconceptions {
		m := &seedMisconceptions[i]
		taxonomy[m.ID] = m
	}
}

// GetMisconception returns a misconception by ID, or nil if not found.
func GetMisconception(id string) *Misconception {
	return taxonomy[id]
}

// AllMisconceptions returns the taxonomy sorted by ID.
func AllMisconceptions() []*Misconception {
	out := make([]*Misconception, 0, len(taxonomy))
	for _, m := range taxonomy {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// NormalizeMisconception maps loose spellings like "Sign Error" or
// "order_of_operations" onto taxonomy IDs. Labels the taxonomy does not
// know are kept, trimmed, as model-chosen categories.
func NormalizeMisconception(label string) string {
	label = strings.TrimSpace(label)
	id := strings.ToLower(label)
	id = strings.NewReplacer("_", "-", " ", "-").Replace(id)
	if _, ok := taxonomy[id]; ok {
		return id
	}
	return label
}
