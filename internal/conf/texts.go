package conf

// User-facing texts. The bot speaks Ukrainian.
const (
	MsgWelcome = `Привіт! Я бот для нагадувань.
Я можу допомогти вам не забути про важливі справи.

Використовуйте /new щоб створити нове нагадування.`

	MsgHelp = `Доступні команди:
/new - Створити нове нагадування
/list - Показати всі активні нагадування
/cancel - Скасувати поточну операцію`

	MsgReminderText     = "Введіть текст нагадування:"
	MsgChooseTime       = "Оберіть спосіб встановлення часу:"
	MsgEnterSpecific    = "Введіть час у форматі ГГ:ХХ"
	MsgEnterDelay       = "Через скільки часу нагадати? (наприклад: 1г 30хв або 2 години)"
	MsgInvalidTime      = "Невірний формат часу. Спробуйте ще раз."
	MsgReminderSet      = "Нагадування встановлено на %s"
	MsgNoReminders      = "У вас немає активних нагадувань"
	MsgListHeader       = "Ваші активні нагадування:"
	MsgCancelled        = "Операцію скасовано"
	MsgNothingToCancel  = "Немає активних операцій для скасування."
	MsgReminderDeleted  = "Нагадування видалено."
	MsgReminderNotFound = "Помилка: нагадування не знайдено."
	MsgEnterSnooze      = "На скільки часу відкласти нагадування?"
	MsgSnoozed          = "Нагадування відкладено на %s"
	MsgFired            = "🔔 Нагадування!\n\n%s"
	MsgGenericError     = "Вибачте, сталася помилка при обробці вашого запиту."
	MsgUnknownCommand   = "Невідома команда. Використовуйте /help для довідки."

	BtnSpecificTime = "Конкретний час"
	BtnDelayTime    = "Через проміжок часу"
	BtnDelete       = "Видалити"
	BtnSnooze       = "Відкласти"
)
