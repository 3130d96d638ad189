package sdp

// AssignTransports maps each media's ID to a transport group ID per
// bundle policy. Medias sharing a
// transport ID are bundled onto one underlying 5-tuple.
func AssignTransports(medias []*LocalMedia, policy BundlePolicy) map[string]string {
	ids := make(map[string]string, len(medias))

	if policy == BundleMaxBundle {
		for _, m := range medias {
			ids[m.MID] = "0"
		}
		return ids
	}

	byKind := map[string]string{}
	for _, m := range medias {
		if policy == BundleBalanced && m.NoBundle {
			ids[m.MID] = "solo-" + m.MID
			continue
		}
		id, ok := byKind[m.Kind]
		if !ok {
			id = "kind-" + m.Kind
			byKind[m.Kind] = id
		}
		ids[m.MID] = id
	}
	return ids
}

// bundleGroups returns, for each transport ID shared by two or more
// medias, the space-separated list of their MIDs in session order
// (one a=group:BUNDLE line per shared transport).
func bundleGroups(medias []*LocalMedia, transports map[string]string) []string {
	order := make([]string, 0, len(transports))
	members := map[string][]string{}
	for _, m := range medias {
		t := transports[m.MID]
		if _, ok := members[t]; !ok {
			order = append(order, t)
		}
		members[t] = append(members[t], m.MID)
	}

	var groups []string
	for _, t := range order {
		mids := members[t]
		if len(mids) < 2 {
			continue
		}
		line := mids[0]
		for _, mid := range mids[1:] {
			line += " " + mid
		}
		groups = append(groups, line)
	}
	return groups
}
