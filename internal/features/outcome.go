package features

// OutcomeKind tells whether a value was computed or replaced by its default.
type OutcomeKind int

const (
	Computed OutcomeKind = iota
	Defaulted
)

func (k OutcomeKind) String() string {
	if k == Defaulted {
		return "defaulted"
	}
	return "computed"
}

// Outcome records how a per-item computation ended. Reason is set for
// defaulted items.
type Outcome struct {
	Kind   OutcomeKind
	Reason error
}

func computed() Outcome { return Outcome{Kind: Computed} }

func defaulted(reason error) Outcome { return Outcome{Kind: Defaulted, Reason: reason} }

func (o Outcome) IsDefaulted() bool { return o.Kind == Defaulted }
