package bot

import (
	"strings"

	"wager-bridge-bot/internal/game"
)

// choicePrefix marks button payloads that belong to a session prompt.
const choicePrefix = "wager:"

// EncodeChoice builds the button payload for an option.
func EncodeChoice(optionID string) string {
	return choicePrefix + optionID
}

// DecodeChoice extracts the option from a button payload.
func DecodeChoice(data string) (string, bool) {
	// Telebot v3 may add a \f prefix to callback data
	data = strings.TrimPrefix(data, "\f")
	if !strings.HasPrefix(data, choicePrefix) {
		return "", false
	}
	option := strings.TrimPrefix(data, choicePrefix)
	return option, option != ""
}

// chunk splits options into rows of at most size.
func chunk(options []game.Choice, size int) [][]game.Choice {
	var rows [][]game.Choice
	for len(options) > size {
		rows = append(rows, options[:size])
		options = options[size:]
	}
	if len(options) > 0 {
		rows = append(rows, options)
	}
	return rows
}
