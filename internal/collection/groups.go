package collection

import (
	"slices"

	"github.com/benbjohnson/immutable"
)

// AddToGroup tags ids with a named group. Ids that are not present are
// ignored. Returns the receiver when nothing new was tagged.
func (c *Collection) AddToGroup(group string, ids ...string) *Collection {
	members, ok := c.groups.Get(group)
	if !ok {
		members = immutable.NewMap[string, struct{}](nil)
	}
	changed := false
	for _, id := range ids {
		if !c.Has(id) {
			continue
		}
		if _, tagged := members.Get(id); tagged {
			continue
		}
		members = members.Set(id, struct{}{})
		changed = true
	}
	if !changed {
		return c
	}
	out := c.clone()
	out.groups = c.groups.Set(group, members)
	return out
}

// Group returns the ids tagged with group, in collection order.
func (c *Collection) Group(group string) []string {
	members, ok := c.groups.Get(group)
	if !ok {
		return nil
	}
	var ids []string
	for id := range c.All() {
		if _, tagged := members.Get(id); tagged {
			ids = append(ids, id)
		}
	}
	return ids
}

// Groups returns the sorted names of every non-empty group.
func (c *Collection) Groups() []string {
	var names []string
	itr := c.groups.Iterator()
	for !itr.Done() {
		name, members, ok := itr.Next()
		if !ok {
			break
		}
		if members.Len() > 0 {
			names = append(names, name)
		}
	}
	slices.Sort(names)
	return names
}

// untag removes id from every group; only valid on a fresh clone.
func (c *Collection) untag(id string) {
	itr := c.groups.Iterator()
	for !itr.Done() {
		name, members, ok := itr.Next()
		if !ok {
			break
		}
		if _, tagged := members.Get(id); tagged {
			c.groups = c.groups.Set(name, members.Delete(id))
		}
	}
}
