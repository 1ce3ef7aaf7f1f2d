package custody

import (
	"fmt"
	"time"

	"github.com/jmerrifield20/bchoc/internal/ledger"
	"github.com/jmerrifield20/bchoc/internal/lifecycle"
	"github.com/jmerrifield20/bchoc/pkg/custodyid"
)

// Event is one ledger block as shown to users. Case and Item hold the
// decoded identifiers when the caller is authorized, hex fields otherwise.
type Event struct {
	Case    string          `json:"case" yaml:"case"`
	Item    string          `json:"item" yaml:"item"`
	State   lifecycle.State `json:"action" yaml:"action"`
	Creator string          `json:"creator,omitempty" yaml:"creator,omitempty"`
	Owner   string          `json:"owner,omitempty" yaml:"owner,omitempty"`
	Time    time.Time       `json:"time" yaml:"time"`
	Hash    string          `json:"hash" yaml:"hash"`
}

func (s *Service) event(b *ledger.Block, decode bool) Event {
	return Event{
		Case:    s.caseLabel(b.Header.Case, decode),
		Item:    s.itemLabel(b.Header.Item, decode),
		State:   lifecycle.State(b.Header.State.String()),
		Creator: b.Header.Creator.String(),
		Owner:   b.Header.Owner.String(),
		Time:    b.Header.Time(),
		Hash:    b.Hash().String(),
	}
}

func (s *Service) caseLabel(f ledger.Field, decode bool) string {
	if decode {
		if id, err := s.codec.DecodeCase(f); err == nil {
			return id.String()
		}
	}
	return custodyid.Hex(f)
}

func (s *Service) itemLabel(f ledger.Field, decode bool) string {
	if decode {
		if id, err := s.codec.DecodeItem(f); err == nil {
			return fmt.Sprint(id)
		}
	}
	return custodyid.Hex(f)
}

// privileged reports whether identifiers may be decoded. An empty password
// means an anonymous view; a wrong one is an error.
func (s *Service) privileged(password string) (bool, error) {
	if password == "" {
		return false, nil
	}
	if _, err := s.auth.Authenticate(password); err != nil {
		return false, err
	}
	return true, nil
}

// CaseSummary is one entry of the case listing.
type CaseSummary struct {
	Case  string `json:"case" yaml:"case"`
	Items int    `json:"unique_items" yaml:"unique_items"`
}

// Cases lists every case in order of first appearance with its number of
// distinct items.
func (s *Service) Cases(password string) ([]CaseSummary, error) {
	decode, err := s.privileged(password)
	if err != nil {
		return nil, err
	}

	var order []ledger.Field
	items := make(map[ledger.Field]map[ledger.Field]struct{})
	err = s.each(func(b *ledger.Block) {
		set, ok := items[b.Header.Case]
		if !ok {
			set = make(map[ledger.Field]struct{})
			items[b.Header.Case] = set
			order = append(order, b.Header.Case)
		}
		set[b.Header.Item] = struct{}{}
	})
	if err != nil {
		return nil, err
	}

	out := make([]CaseSummary, 0, len(order))
	for _, c := range order {
		out = append(out, CaseSummary{Case: s.caseLabel(c, decode), Items: len(items[c])})
	}
	return out, nil
}

// ItemStatus is the latest state of one item.
type ItemStatus struct {
	Item  string          `json:"item" yaml:"item"`
	State lifecycle.State `json:"state" yaml:"state"`
	Owner string          `json:"owner,omitempty" yaml:"owner,omitempty"`
}

// Items lists the items of a case with their latest state.
func (s *Service) Items(caseID, password string) ([]ItemStatus, error) {
	decode, err := s.privileged(password)
	if err != nil {
		return nil, err
	}
	id, err := custodyid.ParseCaseID(caseID)
	if err != nil {
		return nil, err
	}
	want := ledger.Field(s.codec.EncodeCase(id))

	var order []ledger.Field
	latest := make(map[ledger.Field]*ledger.Header)
	err = s.each(func(b *ledger.Block) {
		if b.Header.Case != want {
			return
		}
		if _, ok := latest[b.Header.Item]; !ok {
			order = append(order, b.Header.Item)
		}
		latest[b.Header.Item] = &b.Header
	})
	if err != nil {
		return nil, err
	}

	out := make([]ItemStatus, 0, len(order))
	for _, item := range order {
		h := latest[item]
		out = append(out, ItemStatus{
			Item:  s.itemLabel(item, decode),
			State: lifecycle.State(h.State.String()),
			Owner: h.Owner.String(),
		})
	}
	return out, nil
}

// HistoryQuery filters the history view. Zero values mean no filter.
type HistoryQuery struct {
	CaseID   string
	ItemID   string
	Limit    int
	Reverse  bool
	Password string
}

// History returns matching events oldest first, or newest first with
// Reverse. Limit applies after ordering.
func (s *Service) History(q HistoryQuery) ([]Event, error) {
	decode, err := s.privileged(q.Password)
	if err != nil {
		return nil, err
	}

	var caseFilter, itemFilter *ledger.Field
	if q.CaseID != "" {
		f, err := s.codec.EncodeCaseString(q.CaseID)
		if err != nil {
			return nil, err
		}
		cf := ledger.Field(f)
		caseFilter = &cf
	}
	if q.ItemID != "" {
		f, err := s.codec.EncodeItemString(q.ItemID)
		if err != nil {
			return nil, err
		}
		itf := ledger.Field(f)
		itemFilter = &itf
	}

	var events []Event
	err = s.each(func(b *ledger.Block) {
		if caseFilter != nil && b.Header.Case != *caseFilter {
			return
		}
		if itemFilter != nil && b.Header.Item != *itemFilter {
			return
		}
		events = append(events, s.event(b, decode))
	})
	if err != nil {
		return nil, err
	}

	if q.Reverse {
		for i, j := 0, len(events)-1; i < j; i, j = i+1, j-1 {
			events[i], events[j] = events[j], events[i]
		}
	}
	if q.Limit > 0 && q.Limit < len(events) {
		events = events[:q.Limit]
	}
	return events, nil
}

// Summary counts the blocks of one case by state.
type Summary struct {
	Case        string                  `json:"case" yaml:"case"`
	UniqueItems int                     `json:"unique_items" yaml:"unique_items"`
	Counts      map[lifecycle.State]int `json:"counts" yaml:"counts"`
}

// Summary totals the actions recorded for a case.
func (s *Service) Summary(caseID string) (Summary, error) {
	id, err := custodyid.ParseCaseID(caseID)
	if err != nil {
		return Summary{}, err
	}
	want := ledger.Field(s.codec.EncodeCase(id))

	sum := Summary{Case: id.String(), Counts: make(map[lifecycle.State]int)}
	for _, st := range lifecycle.ItemStates {
		sum.Counts[st] = 0
	}

	items := make(map[ledger.Field]struct{})
	err = s.each(func(b *ledger.Block) {
		if b.Header.Case != want {
			return
		}
		items[b.Header.Item] = struct{}{}
		st := lifecycle.State(b.Header.State.String())
		if _, tracked := sum.Counts[st]; tracked {
			sum.Counts[st]++
		}
	})
	if err != nil {
		return Summary{}, err
	}
	sum.UniqueItems = len(items)
	return sum, nil
}
