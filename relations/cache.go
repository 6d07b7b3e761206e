package relations

// Cache holds the proxies of one owner record instance. Each relation
// gets at most one proxy per owner, constructed lazily on first access,
// so repeated lookups share load state. Owner instances are not safe for
// concurrent use and neither is their cache.
type Cache struct {
	owner   Owner
	reg     *Registry
	proxies map[string]Proxy
}

// NewCache creates an empty proxy cache bound to one owner instance
func NewCache(owner Owner, reg *Registry) *Cache {
	return &Cache{
		owner:   owner,
		reg:     reg,
		proxies: make(map[string]Proxy),
	}
}

// Get returns the proxy for a declared relation, constructing it on
// first access. An undeclared name yields nil.
func (c *Cache) Get(name string) Proxy {
	if p, ok := c.proxies[name]; ok {
		return p
	}

	meta, ok := c.reg.Get(name)
	if !ok {
		return nil
	}

	var p Proxy
	switch meta.Kind {
	case ReferencesOne:
		p = newReferencesOneProxy(c.owner, meta, c.reg)
	case ReferencesMany:
		p = newReferencesManyProxy(c.owner, meta, c.reg)
	case EmbedsMany:
		p = newEmbedsManyProxy(c.owner, meta, c.reg)
	default:
		return nil
	}

	c.proxies[name] = p
	return p
}

// ReferencesOne returns the single-valued reference proxy for a relation,
// or nil when the name is undeclared or of another kind
func (c *Cache) ReferencesOne(name string) *ReferencesOneProxy {
	p, _ := c.Get(name).(*ReferencesOneProxy)
	return p
}

// ReferencesMany returns the multi-valued reference proxy for a relation,
// or nil when the name is undeclared or of another kind
func (c *Cache) ReferencesMany(name string) *ReferencesManyProxy {
	p, _ := c.Get(name).(*ReferencesManyProxy)
	return p
}

// EmbedsMany returns the embedded collection proxy for a relation, or
// nil when the name is undeclared or of another kind
func (c *Cache) EmbedsMany(name string) *EmbedsManyProxy {
	p, _ := c.Get(name).(*EmbedsManyProxy)
	return p
}

// Each visits every instantiated proxy in declaration order. Relations
// never touched on this owner have no proxy and are skipped.
func (c *Cache) Each(fn func(Proxy)) {
	for _, name := range c.reg.Names() {
		if p, ok := c.proxies[name]; ok {
			fn(p)
		}
	}
}

// ResetAll returns every instantiated proxy to the unloaded state
func (c *Cache) ResetAll() {
	c.Each(func(p Proxy) {
		p.Reset()
	})
}
