package bot

import (
	"github.com/m3rciful/filehost/core/telegram/keyboard"

	tele "gopkg.in/telebot.v4"
)

func menuKeyboard(isAdmin bool) *tele.ReplyMarkup {
	buttons := []keyboard.InlineBtn{{Text: "👤 Профиль", Unique: cbProfile}}
	if isAdmin {
		buttons = append(buttons, keyboard.InlineBtn{Text: "🛠 Админ-панель", Unique: cbAdmin})
	}
	return keyboard.InlineButtons(buttons...)
}

func payKeyboard(invoiceID, payURL string) *tele.ReplyMarkup {
	check := keyboard.InlineBtn{Text: "✅ Проверить оплату", Unique: cbCheck, Data: invoiceID}
	if payURL == "" {
		return keyboard.InlineButtons(check)
	}
	return keyboard.InlineButtons(keyboard.InlineBtn{Text: "💳 Оплатить", URL: payURL}, check)
}

func adminKeyboard() *tele.ReplyMarkup {
	return keyboard.InlineButtonsNPerRow([]keyboard.InlineBtn{
		{Text: "👥 Пользователи", Unique: cbAdminUsers},
		{Text: "💵 Цена", Unique: cbAdminPrice},
		{Text: "📊 Статистика", Unique: cbAdminStats},
		{Text: "🎫 Выдать подписку", Unique: cbAdminGrant},
	}, 2)
}
