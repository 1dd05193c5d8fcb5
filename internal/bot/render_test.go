package bot

import (
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m3rciful/filehost/core/telegram/format"
	"github.com/m3rciful/filehost/internal/admin"
	"github.com/m3rciful/filehost/internal/store"
)

var now = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func TestSubStatus(t *testing.T) {
	active := store.User{SubUntil: store.At(now.Add(48 * time.Hour))}
	lapsed := store.User{SubUntil: store.At(now.Add(-time.Hour))}

	assert.Contains(t, subStatus(active, now), "Активна до: <code>2025-06-03 12:00 UTC</code>")
	assert.Contains(t, subStatus(lapsed, now), "Истекла")
	assert.Equal(t, "❌ Не активна", subStatus(store.User{}, now))
}

func TestProfileEscapesTag(t *testing.T) {
	text := profileText(store.User{ID: 5, Tag: "@a<b>"}, now)
	assert.Contains(t, text, "<code>@a&lt;b&gt;</code>")
	assert.Contains(t, text, "<code>5</code>")

	assert.Contains(t, profileText(store.User{ID: 6}, now), "<code>—</code>")
}

func TestMoneyRendering(t *testing.T) {
	assert.Contains(t, payText(decimal.RequireFromString("0.5")), "<b>$0.50</b>")
	assert.Contains(t, lockedText(decimal.RequireFromString("2")), "<b>$2.00</b>")
	assert.Contains(t, priceSetText(decimal.RequireFromString("0.75")), "$0.75")
}

func TestFileText(t *testing.T) {
	f := store.File{
		Code:        "Abc",
		FileName:    "report <final>.pdf",
		MimeType:    "application/pdf",
		OwnerID:     7,
		CreatedAt:   store.At(now),
		BackupMsgID: 42,
	}
	user := fileText(f, false)
	assert.Contains(t, user, "report &lt;final&gt;.pdf")
	assert.Contains(t, user, "<code>2025-06-01 12:00 UTC</code>")
	assert.NotContains(t, user, "Backup")

	adm := fileText(f, true)
	assert.Contains(t, adm, "Backup msg_id: <code>42</code>")

	f.BackupMsgID = 0
	assert.Contains(t, fileText(f, true), "Backup msg_id: <code>—</code>")
}

func TestStatsText(t *testing.T) {
	text := statsText(admin.Stats{
		Counts:              store.Counts{Users: 3, Files: 4, Invoices: 5, PaidInvoices: 2},
		ActiveSubscriptions: 1,
		Price:               decimal.RequireFromString("0.5"),
	})
	assert.Contains(t, text, "Пользователей: <b>3</b>")
	assert.Contains(t, text, "Активных подписок: <b>1</b>")
	assert.Contains(t, text, "(оплачено: 2)")
	assert.Contains(t, text, "$0.50")
}

func TestUserListMessagesChunked(t *testing.T) {
	assert.Equal(t, []string{msgNoUsers}, userListMessages(nil))

	users := make([]store.User, 0, 400)
	for i := 1; i <= 400; i++ {
		users = append(users, store.User{ID: int64(1_000_000 + i), Tag: "@user_with_a_long_handle"})
	}
	parts := userListMessages(users)
	require.Greater(t, len(parts), 1)

	total := 0
	for _, p := range parts {
		assert.LessOrEqual(t, utf8.RuneCountInString(p), format.MaxMessageLen)
		total += strings.Count(p, "• ")
	}
	assert.Equal(t, 400, total)
	assert.True(t, strings.HasPrefix(parts[0], "👥 <b>Пользователи</b>"))
}

func TestUserListFallsBackToName(t *testing.T) {
	parts := userListMessages([]store.User{
		{ID: 1, Tag: "@neo"},
		{ID: 2, FirstName: "Thomas", LastName: "<Anderson>"},
		{ID: 3},
	})
	require.Len(t, parts, 1)
	assert.Contains(t, parts[0], "• @neo — <code>1</code>")
	assert.Contains(t, parts[0], "• Thomas &lt;Anderson&gt; — <code>2</code>")
	assert.Contains(t, parts[0], "• — — <code>3</code>")
}

func TestGrantedText(t *testing.T) {
	assert.Equal(t,
		"✅ Подписка выдана <code>42</code> до <code>2025-07-01 12:00 UTC</code>",
		grantedText(42, now.AddDate(0, 0, 30)),
	)
}

func TestKeyboards(t *testing.T) {
	assert.Len(t, menuKeyboard(false).InlineKeyboard, 1)
	assert.Len(t, menuKeyboard(true).InlineKeyboard, 2)

	pay := payKeyboard("77", "https://pay")
	require.Len(t, pay.InlineKeyboard, 2)
	assert.Equal(t, "https://pay", pay.InlineKeyboard[0][0].URL)
	assert.Equal(t, cbCheck, pay.InlineKeyboard[1][0].Unique)
	assert.Equal(t, "77", pay.InlineKeyboard[1][0].Data)

	assert.Len(t, payKeyboard("77", "").InlineKeyboard, 1)

	adm := adminKeyboard()
	require.Len(t, adm.InlineKeyboard, 2)
	assert.Len(t, adm.InlineKeyboard[0], 2)
}

func TestChatRecipient(t *testing.T) {
	assert.Equal(t, "@backup", chatRecipient("@backup").Recipient())
	assert.Equal(t, "-1001234", chatRecipient("-1001234").Recipient())
}
