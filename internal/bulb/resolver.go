package bulb

// Resolver expands target names into bulb names.
//
// A target may be a bulb name or a group name; the two share one
// namespace. The group table is immutable after construction.
type Resolver struct {
	bulbs  map[string]struct{}
	groups map[string][]string
}

// NewResolver creates a resolver over the configured bulb names and
// the group name to member list map.
func NewResolver(bulbNames []string, groups map[string][]string) *Resolver {
	bulbs := make(map[string]struct{}, len(bulbNames))
	for _, name := range bulbNames {
		bulbs[name] = struct{}{}
	}

	copied := make(map[string][]string, len(groups))
	for name, members := range groups {
		copied[name] = append([]string(nil), members...)
	}

	return &Resolver{bulbs: bulbs, groups: copied}
}

// Resolve expands the target names into a deduplicated, order-preserving
// list of bulb names.
//
// A target naming a known bulb contributes that bulb; a target naming a
// known group contributes its members in the group's defined order,
// skipping members that are not configured bulbs. Targets that match
// neither are dropped silently. An empty result means no valid targets
// and is not an error.
func (r *Resolver) Resolve(targets []string) []string {
	seen := make(map[string]struct{})
	resolved := make([]string, 0, len(targets))

	add := func(name string) {
		if _, dup := seen[name]; dup {
			return
		}
		seen[name] = struct{}{}
		resolved = append(resolved, name)
	}

	for _, target := range targets {
		if _, ok := r.bulbs[target]; ok {
			add(target)
			continue
		}
		if members, ok := r.groups[target]; ok {
			for _, member := range members {
				if _, known := r.bulbs[member]; known {
					add(member)
				}
			}
		}
	}

	return resolved
}

// Groups returns the configured group names.
func (r *Resolver) Groups() []string {
	names := make([]string, 0, len(r.groups))
	for name := range r.groups {
		names = append(names, name)
	}
	return names
}

// GroupMembers returns the configured member list for a group, or nil
// if the group does not exist. A known group always yields a non-nil
// slice, even when empty.
func (r *Resolver) GroupMembers(name string) []string {
	members, ok := r.groups[name]
	if !ok {
		return nil
	}
	out := make([]string, 0, len(members))
	return append(out, members...)
}
