package filter

// NewEventFilter returns a Filter that includes the events matched by the
// compiled filter tree chk and hands each of them to do, if it is not nil.
// Like the tree it wraps, the returned Filter is not safe for concurrent
// use.
func NewEventFilter(chk Check, do func(Event)) Filter {
	return &eventFilter{
		chk: chk,
		do:  do,
	}
}

type eventFilter struct {
	chk Check
	do  func(Event)

	seen    uint64
	matched uint64
}

func (ef *eventFilter) FilterFunc(ev Event) bool {
	ef.seen++
	if !ef.chk.Compare(ev) {
		return false
	}
	ef.matched++
	return true
}

func (ef *eventFilter) DoFunc(ev Event) {
	if ef.do != nil {
		ef.do(ev)
	}
}

// FilterStats returns the number of events seen and matched by f, which
// must have been created by NewEventFilter.
func FilterStats(f Filter) (seen, matched uint64) {
	ef, ok := f.(*eventFilter)
	if !ok {
		return 0, 0
	}
	return ef.seen, ef.matched
}

// Run passes every event received from events through f until the channel
// is closed, calling DoFunc on those that are included.
func Run(f Filter, events <-chan Event) {
	for ev := range events {
		if f.FilterFunc(ev) {
			f.DoFunc(ev)
		}
	}
}
