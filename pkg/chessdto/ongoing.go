package chessdto

// OngoingGames is the persisted document of unfinished games:
// player -> channel -> opponent -> UCI history. Each game is stored once,
// under its first player.
type OngoingGames map[string]map[string]map[string][]string

// Lookup finds the stored history of a game between a and b on channel,
// checking both key orders. The returned owner is the key the game lives under.
func (d OngoingGames) Lookup(a, b, channel string) (moves []string, owner string, ok bool) {
	if mv, found := d[a][channel][b]; found {
		return mv, a, true
	}
	if mv, found := d[b][channel][a]; found {
		return mv, b, true
	}
	return nil, "", false
}

// Put stores moves for the game, keeping an existing entry's orientation.
func (d OngoingGames) Put(p1, p2, channel string, moves []string) {
	if _, owner, ok := d.Lookup(p1, p2, channel); ok && owner == p2 {
		p1, p2 = p2, p1
	}
	chans, ok := d[p1]
	if !ok {
		chans = make(map[string]map[string][]string)
		d[p1] = chans
	}
	opps, ok := chans[channel]
	if !ok {
		opps = make(map[string][]string)
		chans[channel] = opps
	}
	opps[p2] = append(make([]string, 0, len(moves)), moves...)
}

// Delete removes the game in whichever key order it is stored. Empty
// parent maps are pruned.
func (d OngoingGames) Delete(a, b, channel string) bool {
	_, owner, ok := d.Lookup(a, b, channel)
	if !ok {
		return false
	}
	other := b
	if owner == b {
		other = a
	}
	delete(d[owner][channel], other)
	if len(d[owner][channel]) == 0 {
		delete(d[owner], channel)
	}
	if len(d[owner]) == 0 {
		delete(d, owner)
	}
	return true
}

// Count returns the number of stored games.
func (d OngoingGames) Count() int {
	n := 0
	for _, chans := range d {
		for _, opps := range chans {
			n += len(opps)
		}
	}
	return n
}
