package callbacks

import (
	"strings"

	tele "gopkg.in/telebot.v4"
)

// ParseData splits telebot's "\f<unique>|<payload>" encoding.
// Data without the form feed prefix is treated as "<unique>|<payload>" too.
func ParseData(data string) (string, string) {
	data = strings.TrimPrefix(data, "\f")
	unique, payload, _ := strings.Cut(data, "|")
	return strings.TrimSpace(unique), payload
}

// Parse returns the unique key and payload of cb. A generic OnCallback
// handler receives an empty Unique and the raw encoding in Data.
func Parse(cb *tele.Callback) (string, string) {
	if cb == nil {
		return "", ""
	}
	if cb.Unique != "" {
		// telebot already stripped the key from Data
		return cb.Unique, cb.Data
	}
	return ParseData(cb.Data)
}

// CallbackKey returns the unique key of the current callback.
func CallbackKey(c tele.Context) string {
	key, _ := Parse(c.Callback())
	return key
}

// CallbackPayload returns the payload after '|' of the current callback.
func CallbackPayload(c tele.Context) string {
	_, payload := Parse(c.Callback())
	return payload
}
