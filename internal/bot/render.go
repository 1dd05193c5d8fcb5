package bot

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/m3rciful/filehost/core/telegram/format"
	"github.com/m3rciful/filehost/internal/admin"
	"github.com/m3rciful/filehost/internal/store"
	"github.com/m3rciful/filehost/internal/subscription"
)

const (
	dateLayout = "2006-01-02 15:04 UTC"
	noValue    = "—"
)

const (
	msgStart = "👋 <b>File Hosting</b>\n\n" +
		"• Отправь мне файл — я дам ссылку.\n" +
		"• По ссылке файл можно скачать.\n" +
		"• Для загрузки файлов нужна подписка.\n\n" +
		"💳 Оплата подписки: <code>/pay</code>\n" +
		"ℹ️ Инфо по файлу: <code>/file CODE</code>"
	msgMenu            = "Меню:"
	msgFileNotFound    = "❌ Файл не найден."
	msgLinkNotFound    = "⚠️ Файл не найден или ссылка устарела."
	msgFileUsage       = "Пример: <code>/file CODE</code>"
	msgInfoUsage       = "Пример: <code>/info CODE</code>"
	msgSendingFile     = "📦 Отправляю файл…"
	msgPayFailed       = "❌ Не могу создать счёт. Попробуй позже."
	msgCheckFailed     = "❌ Ошибка проверки оплаты. Попробуй позже."
	msgInvoiceNotFound = "Счёт не найден"
	msgNoAccess        = "Нет доступа"
	msgSlowDown        = "⏳ Слишком часто. Подожди немного."
	msgAdminPanel      = "🛠 <b>Админ-панель</b>"
	msgNoUsers         = "Пользователей нет."
	msgGrantPrompt     = "ID пользователя, кому выдать подписку (30 дней).\nОтмена: <code>/cancel</code>"
	msgBadPrice        = "❌ Не понял цену. Нужно положительное число, не больше двух знаков после точки. Пример: <code>0.5</code>"
	msgBadUserID       = "❌ Неверный ID. Пришли числом."
	msgCancelled       = "Ввод отменён."
	msgNothingToCancel = "Нечего отменять."
	msgInternal        = "❌ Что-то пошло не так. Попробуй ещё раз."
	msgBackupFailed    = "❌ Не смог переслать файл в backup-группу/канал.\n" +
		"Проверь: бот добавлен в группу/канал и имеет права."
)

func money(d decimal.Decimal) string {
	return "$" + d.StringFixed(2)
}

func date(t time.Time) string {
	if t.IsZero() {
		return noValue
	}
	return t.UTC().Format(dateLayout)
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return noValue
	}
	return s
}

// subStatus renders the subscription line of the profile.
func subStatus(u store.User, now time.Time) string {
	switch {
	case subscription.HasActive(u, now):
		return "✅ Активна до: " + format.Code(date(u.SubUntil.Time))
	case u.SubUntil.Set():
		return "❌ Истекла: " + format.Code(date(u.SubUntil.Time))
	}
	return "❌ Не активна"
}

func profileText(u store.User, now time.Time) string {
	return "👤 <b>Профиль</b>\n" +
		"ID: " + format.Code(strconv.FormatInt(u.ID, 10)) + "\n" +
		"Тег: " + format.Code(orDash(u.Tag)) + "\n" +
		"Подписка: " + subStatus(u, now) + "\n\n" +
		"💳 Оплата подписки: <code>/pay</code>"
}

func payText(price decimal.Decimal) string {
	return "💳 <b>Подписка на 1 месяц</b>\n" +
		"Сумма: " + format.Bold(money(price)) + "\n\n" +
		"Нажми «Оплатить», после оплаты — «Проверить оплату»."
}

func lockedText(price decimal.Decimal) string {
	return "🔒 <b>Загрузка доступна по подписке.</b>\n" +
		"Цена: " + format.Bold(money(price)) + " / месяц\n\n" +
		"Оплата подписки: <code>/pay</code>"
}

func activatedText(u store.User, now time.Time) string {
	return "✅ Подписка активирована.\n" + subStatus(u, now)
}

func savedText(link string) string {
	return "✅ <b>Файл сохранён.</b>\n\n" +
		"🔗 Ссылка:\n" + format.Code(link) + "\n\n" +
		"По ссылке файл можно скачать."
}

// fileText renders file details. The admin variant adds the backup message id.
func fileText(f store.File, forAdmin bool) string {
	var b strings.Builder
	if forAdmin {
		b.WriteString("ℹ️ <b>Информация о файле (админ)</b>\n")
	} else {
		b.WriteString("ℹ️ <b>Информация о файле</b>\n")
	}
	fmt.Fprintf(&b, "Код: %s\n", format.Code(f.Code))
	fmt.Fprintf(&b, "Имя: %s\n", format.Code(f.FileName))
	fmt.Fprintf(&b, "Тип: %s\n", format.Code(f.MimeType))
	fmt.Fprintf(&b, "Отправитель: %s\n", format.Code(orDash(f.OwnerTag)))
	fmt.Fprintf(&b, "ID отправителя: %s\n", format.Code(strconv.FormatInt(f.OwnerID, 10)))
	fmt.Fprintf(&b, "Дата: %s", format.Code(date(f.CreatedAt.Time)))
	if forAdmin {
		msgID := noValue
		if f.BackupMsgID != 0 {
			msgID = strconv.Itoa(f.BackupMsgID)
		}
		fmt.Fprintf(&b, "\nBackup msg_id: %s", format.Code(msgID))
	}
	return b.String()
}

// downloadText precedes the document sent for a /start deep link.
func downloadText(f store.File) string {
	return "ℹ️ <b>Файл</b>\n" +
		"Имя: " + format.Code(f.FileName) + "\n" +
		"Тип: " + format.Code(f.MimeType) + "\n" +
		"Отправитель: " + format.Code(orDash(f.OwnerTag)) + "\n" +
		"Дата: " + format.Code(date(f.CreatedAt.Time)) + "\n\n" +
		msgSendingFile
}

func statsText(s admin.Stats) string {
	return "📊 <b>Статистика</b>\n" +
		fmt.Sprintf("Пользователей: <b>%d</b>\n", s.Users) +
		fmt.Sprintf("Активных подписок: <b>%d</b>\n", s.ActiveSubscriptions) +
		fmt.Sprintf("Файлов: <b>%d</b>\n", s.Files) +
		fmt.Sprintf("Инвойсов: <b>%d</b> (оплачено: %d)\n", s.Invoices, s.PaidInvoices) +
		"Цена: " + format.Bold(money(s.Price)) + "/мес"
}

// userListMessages renders the user list split into Telegram-sized messages.
func userListMessages(users []store.User) []string {
	if len(users) == 0 {
		return []string{msgNoUsers}
	}
	lines := make([]string, 0, len(users)+1)
	lines = append(lines, "👥 <b>Пользователи</b>")
	for _, u := range users {
		lines = append(lines, fmt.Sprintf("• %s — %s",
			format.HTML(orDash(u.DisplayName())),
			format.Code(strconv.FormatInt(u.ID, 10)),
		))
	}
	return format.Chunk(lines, format.MaxMessageLen)
}

func pricePromptText(current decimal.Decimal) string {
	return "💵 Текущая цена: " + format.Bold(money(current)) + "\n" +
		"Отправь новую цену числом (пример: <code>0.5</code>)\n" +
		"Отмена: <code>/cancel</code>"
}

func priceSetText(price decimal.Decimal) string {
	return "✅ Цена обновлена: " + format.Bold(money(price)) + " / мес"
}

func grantedText(target int64, until time.Time) string {
	return "✅ Подписка выдана " + format.Code(strconv.FormatInt(target, 10)) +
		" до " + format.Code(date(until))
}

func checkStatusText(status store.InvoiceStatus) string {
	return "Статус: " + string(status)
}
