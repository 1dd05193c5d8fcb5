package callbacks

import (
	"strconv"
	"strings"

	tele "gopkg.in/telebot.v4"
)

// PayloadInt64 parses callback payload as int64.
func PayloadInt64(c tele.Context) (int64, error) {
	return strconv.ParseInt(strings.TrimSpace(CallbackPayload(c)), 10, 64)
}

// PayloadString returns the trimmed payload or strconv.ErrSyntax when it is empty.
func PayloadString(c tele.Context) (string, error) {
	p := strings.TrimSpace(CallbackPayload(c))
	if p == "" {
		return "", strconv.ErrSyntax
	}
	return p, nil
}
