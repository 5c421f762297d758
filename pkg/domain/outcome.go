package domain

// RejectionKind names the reason an answer was refused. Rule failures use the
// rule kind; normalization failures use one of the Reject* constants.
type RejectionKind string

const (
	RejectInvalidOption  RejectionKind = "invalid_option"
	RejectInvalidBoolean RejectionKind = "invalid_boolean"
	RejectInvalidDate    RejectionKind = "invalid_date"
	RejectSingleValue    RejectionKind = "single_value"
	RejectRequired       RejectionKind = RejectionKind(RuleRequired)
)

// Rejection describes why an answer was not accepted.
// It is returned as data; the user is expected to retry.
type Rejection struct {
	QuestionID string        `json:"question_id"`
	Kind       RejectionKind `json:"kind"`
	Message    LocalizedText `json:"message"`
}

// Text returns the message in lang, with the same fallback as LocalizedText.Get.
func (r Rejection) Text(lang, fallback string) string {
	return r.Message.Get(lang, fallback)
}

// Outcome is the result of validating a submitted answer.
type Outcome struct {
	Value     Value      `json:"value"`
	Rejection *Rejection `json:"rejection,omitempty"`
}

// Accepted reports whether the answer passed validation.
func (o Outcome) Accepted() bool { return o.Rejection == nil }
