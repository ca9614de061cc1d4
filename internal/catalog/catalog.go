// internal/catalog/catalog.go
//
// Immutable entity catalogs for the guessing games.
// Responsibilities:
//   - Define the schema-driven entity model (categorical/ordered/set/age fields).
//   - Parse a JSON dataset into a validated, immutable Catalog.
//   - Derive the secret-eligible pool (difficulty easy|medium).
//   - Resolve free-text guesses (exact, case-insensitive) and serve
//     accent-insensitive autocomplete search.
//
// Dataset shape (one file per game):
//   {
//     "game":   "f1",
//     "title":  "Guess the F1 driver",
//     "schema": [ {"name":"nationality","kind":"categorical"}, ... ],
//     "entities": [
//       {"name":"...","difficulty":"easy","birthdate":"1985-01-07",
//        "fields":{"nationality":"British","teamsHistory":["McLaren"]}}, ...
//     ]
//   }
//
// Constraints:
//   • Entity names are the unique identifiers; unique within one catalog.
//   • A catalog is never mutated after Load.

package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Kind identifies how a schema field is compared.
type Kind string

const (
	KindCategorical Kind = "categorical" // single discrete value, exact equality
	KindOrdered     Kind = "ordered"     // numeric value, equality + direction
	KindSet         Kind = "set"         // collection of values, set overlap
	KindAge         Kind = "age"         // ordered value derived from birth/death dates
)

// Difficulty tags control secret-pool eligibility.
type Difficulty string

const (
	Easy   Difficulty = "easy"
	Medium Difficulty = "medium"
	Hard   Difficulty = "hard"
)

// FieldSpec declares one comparable field of a game's schema.
type FieldSpec struct {
	Name string `json:"name"`
	Kind Kind   `json:"kind"`
}

// Entity is one guessable record. Values live in kind-typed maps keyed by
// field name; birth/death dates feed age-kind fields.
type Entity struct {
	Name       string
	Difficulty Difficulty
	Strings    map[string]string   // categorical values
	Numbers    map[string]float64  // ordered values
	Lists      map[string][]string // set values
	Birth      time.Time           // zero unless the schema has an age field
	Death      *time.Time          // nil while alive
}

// Catalog is the full, ordered entity list for one game plus lookup indexes.
type Catalog struct {
	Game     string
	Title    string
	Schema   []FieldSpec
	Entities []Entity

	byName map[string]*Entity // lowercased name → entity
}

// Errors surfaced by catalog loading and lookup.
var (
	ErrEmptyCatalog = errors.New("catalog: no entities")
	ErrEmptyPool    = errors.New("catalog: secret pool is empty")
	ErrNotFound     = errors.New("catalog: entity not found")
)

// --- loading ---------------------------------------------------------------

type rawDataset struct {
	Game     string      `json:"game"`
	Title    string      `json:"title"`
	Schema   []FieldSpec `json:"schema"`
	Entities []rawEntity `json:"entities"`
}

type rawEntity struct {
	Name       string                     `json:"name"`
	Difficulty string                     `json:"difficulty"`
	Birthdate  string                     `json:"birthdate"`
	Deathdate  string                     `json:"deathdate"`
	Fields     map[string]json.RawMessage `json:"fields"`
}

// Load parses and validates one JSON dataset into a Catalog.
// Every entity must carry a value of the declared shape for every schema
// field (age fields read the entity-level birthdate instead).
func Load(data []byte) (*Catalog, error) {
	var raw rawDataset
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("catalog: parse dataset: %w", err)
	}
	if raw.Game == "" {
		return nil, errors.New("catalog: dataset missing game name")
	}
	if len(raw.Schema) == 0 {
		return nil, fmt.Errorf("catalog %s: dataset missing schema", raw.Game)
	}
	if len(raw.Entities) == 0 {
		return nil, ErrEmptyCatalog
	}

	c := &Catalog{
		Game:     raw.Game,
		Title:    raw.Title,
		Schema:   raw.Schema,
		Entities: make([]Entity, 0, len(raw.Entities)),
		byName:   make(map[string]*Entity, len(raw.Entities)),
	}

	for _, re := range raw.Entities {
		e, err := parseEntity(re, raw.Schema)
		if err != nil {
			return nil, fmt.Errorf("catalog %s: %w", raw.Game, err)
		}
		if _, dup := c.byName[strings.ToLower(e.Name)]; dup {
			return nil, fmt.Errorf("catalog %s: duplicate entity name %q", raw.Game, e.Name)
		}
		c.Entities = append(c.Entities, e)
		c.byName[strings.ToLower(e.Name)] = &c.Entities[len(c.Entities)-1]
	}
	return c, nil
}

// parseEntity validates one raw entity against the schema and builds the
// typed value maps. Scalar values declared as set fields are normalized to
// one-element lists so the comparator sees a single shape.
func parseEntity(re rawEntity, schema []FieldSpec) (Entity, error) {
	e := Entity{
		Name:       re.Name,
		Difficulty: Difficulty(re.Difficulty),
		Strings:    map[string]string{},
		Numbers:    map[string]float64{},
		Lists:      map[string][]string{},
	}
	if e.Name == "" {
		return e, errors.New("entity missing name")
	}
	switch e.Difficulty {
	case Easy, Medium, Hard:
	default:
		return e, fmt.Errorf("entity %q: invalid difficulty %q", e.Name, re.Difficulty)
	}

	for _, f := range schema {
		if f.Kind == KindAge {
			birth, err := time.Parse("2006-01-02", re.Birthdate)
			if err != nil {
				return e, fmt.Errorf("entity %q: birthdate: %w", e.Name, err)
			}
			e.Birth = birth
			if re.Deathdate != "" {
				death, err := time.Parse("2006-01-02", re.Deathdate)
				if err != nil {
					return e, fmt.Errorf("entity %q: deathdate: %w", e.Name, err)
				}
				e.Death = &death
			}
			continue
		}

		rawVal, ok := re.Fields[f.Name]
		if !ok {
			return e, fmt.Errorf("entity %q: missing field %q", e.Name, f.Name)
		}
		switch f.Kind {
		case KindCategorical:
			var s string
			if err := json.Unmarshal(rawVal, &s); err != nil {
				return e, fmt.Errorf("entity %q: field %q: %w", e.Name, f.Name, err)
			}
			e.Strings[f.Name] = s
		case KindOrdered:
			var n float64
			if err := json.Unmarshal(rawVal, &n); err != nil {
				return e, fmt.Errorf("entity %q: field %q: %w", e.Name, f.Name, err)
			}
			e.Numbers[f.Name] = n
		case KindSet:
			var list []string
			if err := json.Unmarshal(rawVal, &list); err != nil {
				// Scalar shape: normalize to a one-element set.
				var s string
				if err2 := json.Unmarshal(rawVal, &s); err2 != nil {
					return e, fmt.Errorf("entity %q: field %q: %w", e.Name, f.Name, err)
				}
				list = []string{s}
			}
			e.Lists[f.Name] = list
		default:
			return e, fmt.Errorf("entity %q: field %q: unknown kind %q", e.Name, f.Name, f.Kind)
		}
	}
	return e, nil
}

// --- queries ---------------------------------------------------------------

// SecretPool returns the entities eligible to be a daily secret
// (difficulty easy or medium). An empty pool is a fatal startup condition.
func (c *Catalog) SecretPool() ([]Entity, error) {
	pool := make([]Entity, 0, len(c.Entities))
	for _, e := range c.Entities {
		if e.Difficulty == Easy || e.Difficulty == Medium {
			pool = append(pool, e)
		}
	}
	if len(pool) == 0 {
		return nil, ErrEmptyPool
	}
	return pool, nil
}

// FindByName resolves a free-text guess to a catalog entity by
// case-insensitive exact name match.
func (c *Catalog) FindByName(name string) (Entity, error) {
	if e, ok := c.byName[strings.ToLower(strings.TrimSpace(name))]; ok {
		return *e, nil
	}
	return Entity{}, ErrNotFound
}

// searchLimit caps autocomplete results.
const searchLimit = 10

// Search returns up to 10 entities whose name contains the query,
// accent- and case-insensitive, excluding already-guessed names.
// Results keep catalog order; no relevance ranking.
func (c *Catalog) Search(query string, exclude map[string]struct{}) []Entity {
	q := foldName(query)
	if q == "" {
		return nil
	}
	var out []Entity
	for _, e := range c.Entities {
		if _, skip := exclude[e.Name]; skip {
			continue
		}
		if strings.Contains(foldName(e.Name), q) {
			out = append(out, e)
			if len(out) == searchLimit {
				break
			}
		}
	}
	return out
}

// accentFolder strips combining marks after NFD decomposition,
// so "Räikkönen" folds to "raikkonen".
var accentFolder = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// foldName lowercases and removes accents for search matching.
func foldName(s string) string {
	folded, _, err := transform.String(accentFolder, s)
	if err != nil {
		folded = s
	}
	return strings.ToLower(strings.TrimSpace(folded))
}
