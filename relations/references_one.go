package relations

import "context"

// ReferencesOneProxy mediates a single-valued reference relation. The
// foreign key is stored as a scalar id on the owner, with a type-tag
// attribute alongside it when the relation is polymorphic.
type ReferencesOneProxy struct {
	proxyState
	target Record
}

func newReferencesOneProxy(owner Owner, meta *Metadata, reg *Registry) *ReferencesOneProxy {
	return &ReferencesOneProxy{
		proxyState: proxyState{owner: owner, meta: meta, reg: reg},
	}
}

// CanLoad reports whether a load attempt is worth making: a custom
// finder is configured or the foreign key holds an id
func (p *ReferencesOneProxy) CanLoad() bool {
	if p.meta.Finder != nil {
		return true
	}
	return asString(p.owner.Attribute(p.meta.ForeignKey)) != ""
}

// Reset returns the proxy to the unloaded state
func (p *ReferencesOneProxy) Reset() {
	p.target = nil
	p.loaded = false
}

// Get returns the related record, loading it on first access. A missing
// target yields nil, not an error.
func (p *ReferencesOneProxy) Get(ctx context.Context) (Record, error) {
	if p.loaded {
		return p.target, nil
	}

	rec, err := p.load(ctx)
	if err != nil {
		if IsRecordNotFound(err) {
			rec = nil
		} else {
			return nil, err
		}
	}

	p.target = rec
	p.loaded = true
	return rec, nil
}

func (p *ReferencesOneProxy) load(ctx context.Context) (Record, error) {
	if p.meta.Finder != nil {
		results, err := p.meta.Finder(ctx, p.owner)
		if err != nil {
			return nil, err
		}
		for _, rec := range results {
			if rec != nil {
				return rec, nil
			}
		}
		return nil, nil
	}

	id := asString(p.owner.Attribute(p.meta.ForeignKey))
	if id == "" {
		return nil, nil
	}

	typeName := p.meta.TargetTypeName
	if p.meta.Polymorphic {
		if tag := asString(p.owner.Attribute(p.meta.PolymorphicTypeColumn())); tag != "" {
			typeName = tag
		}
	}

	target, err := p.reg.typeByName(typeName)
	if err != nil {
		return nil, err
	}
	return target.Find(ctx, id)
}

// Replace sets the related record, writing the foreign key (and type
// tag, if polymorphic) onto the owner when the relation persists its own
// foreign key. Replacing with nil clears the foreign key and marks the
// proxy loaded with nothing.
func (p *ReferencesOneProxy) Replace(record Record) error {
	if record == nil {
		if p.meta.PersistsForeignKey() {
			p.owner.SetAttribute(p.meta.ForeignKey, nil)
			p.owner.MarkAttributeChanged(p.meta.ForeignKey)
			if p.meta.Polymorphic {
				p.owner.SetAttribute(p.meta.PolymorphicTypeColumn(), nil)
				p.owner.MarkAttributeChanged(p.meta.PolymorphicTypeColumn())
			}
		}
		p.target = nil
		p.loaded = true
		return nil
	}

	if !p.meta.Polymorphic && record.TypeName() != p.meta.TargetTypeName {
		return &TypeMismatchError{
			Relation: p.meta.Name,
			Expected: p.meta.TargetTypeName,
			Actual:   record.TypeName(),
		}
	}

	if p.meta.PersistsForeignKey() {
		p.owner.SetAttribute(p.meta.ForeignKey, record.ID())
		p.owner.MarkAttributeChanged(p.meta.ForeignKey)
		if p.meta.Polymorphic {
			p.owner.SetAttribute(p.meta.PolymorphicTypeColumn(), record.TypeName())
			p.owner.MarkAttributeChanged(p.meta.PolymorphicTypeColumn())
		}
	}

	p.target = record
	p.loaded = true
	return nil
}
