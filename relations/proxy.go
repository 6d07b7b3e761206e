package relations

// Proxy is the lazily-loaded handle mediating access to one relation on
// one owner record instance. Once loaded, reads never re-trigger storage
// access until Reset returns the proxy to the unloaded state.
type Proxy interface {
	Name() string
	Metadata() *Metadata
	Loaded() bool
	Reset()

	// CanLoad reports whether a load attempt is even worth making
	CanLoad() bool
}

// proxyState is the shared state machine of all proxy variants
type proxyState struct {
	owner  Owner
	meta   *Metadata
	reg    *Registry
	loaded bool
}

// Name returns the relation name
func (p *proxyState) Name() string {
	return p.meta.Name
}

// Metadata returns the relation's shared, read-only metadata
func (p *proxyState) Metadata() *Metadata {
	return p.meta
}

// Loaded reports whether the proxy holds its target in memory
func (p *proxyState) Loaded() bool {
	return p.loaded
}

// Owner returns the record this proxy is bound to
func (p *proxyState) Owner() Owner {
	return p.owner
}

// mergeByID unions two record lists by identity, preserving the order of
// existing and appending fresh records not already present
func mergeByID(existing, fetched []Record) []Record {
	seen := make(map[string]bool, len(existing))
	for _, rec := range existing {
		seen[rec.ID()] = true
	}

	result := existing
	for _, rec := range fetched {
		if rec == nil || seen[rec.ID()] {
			continue
		}
		result = append(result, rec)
		seen[rec.ID()] = true
	}
	return result
}

// indexOfID returns the position of a record with the given id, or -1
func indexOfID(records []Record, id string) int {
	for i, rec := range records {
		if rec.ID() == id {
			return i
		}
	}
	return -1
}

// removeByID removes the record with the given id, preserving order
func removeByID(records []Record, id string) []Record {
	idx := indexOfID(records, id)
	if idx < 0 {
		return records
	}
	return append(records[:idx], records[idx+1:]...)
}

// containsString reports whether a string list contains a value
func containsString(list []string, value string) bool {
	for _, v := range list {
		if v == value {
			return true
		}
	}
	return false
}

// removeString removes the first occurrence of a value, preserving order
func removeString(list []string, value string) []string {
	for i, v := range list {
		if v == value {
			return append(list[:i], list[i+1:]...)
		}
	}
	return list
}

// asString coerces an attribute value to a string id
func asString(value interface{}) string {
	if value == nil {
		return ""
	}
	s, _ := value.(string)
	return s
}

// asStringList coerces an attribute value to a string id list. Codecs
// hand back []interface{}, direct setters hand back []string.
func asStringList(value interface{}) []string {
	switch v := value.(type) {
	case nil:
		return nil
	case []string:
		result := make([]string, len(v))
		copy(result, v)
		return result
	case []interface{}:
		result := make([]string, 0, len(v))
		for _, e := range v {
			if s, ok := e.(string); ok {
				result = append(result, s)
			}
		}
		return result
	default:
		return nil
	}
}
