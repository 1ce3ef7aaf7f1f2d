package lifecycle

// Tracker folds a stream of (item, state) records into the latest state per
// item. Keys are the opaque item fields; Tracker never decodes them.
type Tracker struct {
	latest map[[32]byte]State
}

// NewTracker returns an empty Tracker.
func NewTracker() *Tracker {
	return &Tracker{latest: make(map[[32]byte]State)}
}

// Apply validates and records the next state of item. On error the
// tracker is unchanged.
func (t *Tracker) Apply(item [32]byte, next State) error {
	if err := Transition(t.latest[item], next); err != nil {
		return err
	}
	t.latest[item] = next
	return nil
}
