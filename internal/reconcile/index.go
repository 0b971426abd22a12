package reconcile

import "unicode/utf8"

// Index holds the lookup structures built from the company catalog. It is
// built once per request and only read afterwards.
type Index struct {
	exact           map[string]Company
	exactNormalized map[string]Company
	fuzzy           map[string][]Company
	entries         []indexEntry
}

type indexEntry struct {
	company Company
	key     string
	keyLen  int
}

// BuildIndex indexes the catalog. When several companies share a raw or
// normalized key the first one in catalog order owns the exact entries;
// fuzzy keeps all of them.
func BuildIndex(companies []Company) *Index {
	index := &Index{
		exact:           make(map[string]Company, len(companies)),
		exactNormalized: make(map[string]Company, len(companies)),
		fuzzy:           make(map[string][]Company, len(companies)),
		entries:         make([]indexEntry, 0, len(companies)),
	}
	for _, company := range companies {
		if raw := exactKey(company.Name); raw != "" {
			if _, exists := index.exact[raw]; !exists {
				index.exact[raw] = company
			}
		}

		key := Normalize(company.Name)
		if key == "" {
			continue
		}
		if _, exists := index.exactNormalized[key]; !exists {
			index.exactNormalized[key] = company
		}
		index.fuzzy[key] = append(index.fuzzy[key], company)
		index.entries = append(index.entries, indexEntry{
			company: company,
			key:     key,
			keyLen:  utf8.RuneCountInString(key),
		})
	}
	return index
}

// Len returns the number of catalog entries with a usable normalized key.
func (ix *Index) Len() int {
	return len(ix.entries)
}
