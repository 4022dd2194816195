package quiz

// AnswerLedger maps a question id to the chosen option id.
type AnswerLedger map[string]string

// Has reports whether questionID already has a locked answer.
func (l AnswerLedger) Has(questionID string) bool {
	_, ok := l[questionID]
	return ok
}

// With returns a copy of l with the pair recorded. l itself is not modified.
func (l AnswerLedger) With(questionID, optionID string) AnswerLedger {
	out := l.Clone()
	out[questionID] = optionID
	return out
}

func (l AnswerLedger) Clone() AnswerLedger {
	out := make(AnswerLedger, len(l)+1)
	for q, o := range l {
		out[q] = o
	}
	return out
}
