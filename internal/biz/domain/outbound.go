package domain

// Choice is a button attached to an outbound message. Payload uses the
// "<type>:<param>" callback encoding.
type Choice struct {
	Label   string
	Payload string
}

// Outbound is a message the core asks the transport to send. A nil Choices
// slice means plain text.
type Outbound struct {
	ChatID  string
	Text    string
	Choices []Choice
}

// TextMessage builds a plain text outbound.
func TextMessage(chatID, text string) Outbound {
	return Outbound{ChatID: chatID, Text: text}
}

// ChoiceMessage builds an outbound with attached buttons.
func ChoiceMessage(chatID, text string, choices ...Choice) Outbound {
	return Outbound{ChatID: chatID, Text: text, Choices: choices}
}
