package models

import "time"

// SlotName identifies a field of a booking intent.
type SlotName string

const (
	SlotOrigin         SlotName = "origin"
	SlotDestination    SlotName = "destination"
	SlotDate           SlotName = "date"
	SlotTimeWindow     SlotName = "time_window"
	SlotPassengerCount SlotName = "passenger_count"
	SlotSeatPreference SlotName = "seat_preference"
	SlotPaymentMethod  SlotName = "payment_method"
	SlotBudget         SlotName = "budget"
)

// RequiredSlots must all be filled above threshold before booking starts.
var RequiredSlots = []SlotName{SlotOrigin, SlotDestination, SlotDate, SlotPassengerCount}

// Provenance records whether a slot value came from the user or a default.
type Provenance string

const (
	ProvenanceUser    Provenance = "user"
	ProvenanceDefault Provenance = "default"
)

// SlotValue is a single slot entry accumulated on the session intent.
type SlotValue struct {
	Value      string     `json:"value"`
	Confidence float64    `json:"confidence"`
	Provenance Provenance `json:"provenance"`
	UpdatedAt  time.Time  `json:"updatedAt"`
}

// SlotCandidate is one ranked value the extractor proposed for a slot.
type SlotCandidate struct {
	Value      string  `json:"value"`
	Confidence float64 `json:"confidence"`
}

// CandidateIntent is the extractor's structured reading of one utterance.
type CandidateIntent struct {
	// Slots maps a slot name to candidate values, best first.
	Slots map[SlotName][]SlotCandidate `json:"slots"`
	// ReferencedSlots lists the slot classes the utterance actually talked
	// about; a candidate may only overwrite a filled slot of these classes.
	ReferencedSlots []SlotName `json:"referencedSlots"`
	Overall         float64    `json:"overallConfidence"`
	// WantsHuman is set when the user explicitly asked for an operator.
	WantsHuman bool `json:"wantsHuman"`
	// SelectedOption carries a trip choice ("2", or a trip code) when the
	// session is waiting on one.
	SelectedOption string `json:"selectedOption,omitempty"`
}

// Empty reports whether the extractor produced nothing usable.
func (c CandidateIntent) Empty() bool {
	return len(c.Slots) == 0 && c.SelectedOption == "" && !c.WantsHuman
}

// Best returns the top-ranked candidate for a slot.
func (c CandidateIntent) Best(name SlotName) (SlotCandidate, bool) {
	ranked := c.Slots[name]
	if len(ranked) == 0 {
		return SlotCandidate{}, false
	}
	return ranked[0], true
}

// BookingIntent is the accumulated, validated intent for a session.
type BookingIntent struct {
	// Slots holds values filled at or above the confidence threshold.
	Slots map[SlotName]SlotValue `json:"slots"`
	// Pending holds below-threshold candidates awaiting user confirmation.
	// They never drive a booking action directly.
	Pending map[SlotName]SlotValue `json:"pending,omitempty"`
	// ClarifyCount tracks clarification prompts issued per slot.
	ClarifyCount map[SlotName]int `json:"clarifyCount,omitempty"`
}

// NewBookingIntent returns an empty intent with maps initialised.
func NewBookingIntent() BookingIntent {
	return BookingIntent{
		Slots:        make(map[SlotName]SlotValue),
		Pending:      make(map[SlotName]SlotValue),
		ClarifyCount: make(map[SlotName]int),
	}
}

// EnsureMaps allocates any nil maps. Empty maps are dropped when a session
// round-trips through JSON, so callers must re-initialise after a load.
func (b *BookingIntent) EnsureMaps() {
	if b.Slots == nil {
		b.Slots = make(map[SlotName]SlotValue)
	}
	if b.Pending == nil {
		b.Pending = make(map[SlotName]SlotValue)
	}
	if b.ClarifyCount == nil {
		b.ClarifyCount = make(map[SlotName]int)
	}
}

// Filled reports whether a slot is filled (pending candidates do not count).
func (b BookingIntent) Filled(name SlotName) bool {
	_, ok := b.Slots[name]
	return ok
}

// Get returns the filled value for a slot, or the empty string.
func (b BookingIntent) Get(name SlotName) string {
	return b.Slots[name].Value
}
