package entity

// slot pairs the current and previous instance of one kind so the two
// are always added and removed together.
type slot struct {
	acc      Accessor
	current  Data
	previous Data
}

// store is a sparse set keyed by accessor id: index maps id to a position
// in the dense slot slice. Removal swaps the last slot into the hole, so
// iteration order is insertion order until the first removal.
type store struct {
	index map[int]int
	slots []slot
}

func newStore() *store {
	return &store{index: make(map[int]int)}
}

func (s *store) get(acc Accessor) (*slot, bool) {
	pos, ok := s.index[acc.ID()]
	if !ok {
		return nil, false
	}
	return &s.slots[pos], true
}

func (s *store) has(acc Accessor) bool {
	_, ok := s.index[acc.ID()]
	return ok
}

// add assumes the caller checked has()
func (s *store) add(acc Accessor, current, previous Data) {
	s.index[acc.ID()] = len(s.slots)
	s.slots = append(s.slots, slot{acc: acc, current: current, previous: previous})
}

func (s *store) remove(acc Accessor) bool {
	pos, ok := s.index[acc.ID()]
	if !ok {
		return false
	}
	last := len(s.slots) - 1
	if pos != last {
		moved := s.slots[last]
		s.slots[pos] = moved
		s.index[moved.acc.ID()] = pos
	}
	s.slots[last] = slot{}
	s.slots = s.slots[:last]
	delete(s.index, acc.ID())
	return true
}

func (s *store) len() int { return len(s.slots) }

func (s *store) accessors() []Accessor {
	out := make([]Accessor, len(s.slots))
	for i := range s.slots {
		out[i] = s.slots[i].acc
	}
	return out
}

// clone deep-copies both buffers
func (s *store) clone() *store {
	c := &store{
		index: make(map[int]int, len(s.index)),
		slots: make([]slot, len(s.slots)),
	}
	for i, sl := range s.slots {
		c.slots[i] = slot{acc: sl.acc, current: sl.current.Clone(), previous: sl.previous.Clone()}
		c.index[sl.acc.ID()] = i
	}
	return c
}

// storeFrom deep-copies the data of any entity
func storeFrom(src Entity) (*store, error) {
	s := newStore()
	for _, acc := range src.Accessors() {
		cur, err := src.Current(acc)
		if err != nil {
			return nil, err
		}
		prev, err := src.Previous(acc)
		if err != nil {
			return nil, err
		}
		s.add(acc, cur.Clone(), prev.Clone())
	}
	return s, nil
}

func (s *store) selectCurrent(filter func(Accessor, Data) bool) []Data {
	out := make([]Data, 0, len(s.slots))
	for _, sl := range s.slots {
		if filter == nil || filter(sl.acc, sl.current) {
			out = append(out, sl.current)
		}
	}
	return out
}
