// Package admin — handlers.go: команды консоли в личных сообщениях.
// Все команды, кроме /вход и /выход, требуют активной сессии.
package admin

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/economy-bot/internal/common"
	"serotonyl.ru/economy-bot/internal/features/economy"
	"serotonyl.ru/economy-bot/internal/features/events"
	"serotonyl.ru/economy-bot/internal/features/members"
	"serotonyl.ru/economy-bot/internal/features/orbs"
	"serotonyl.ru/economy-bot/internal/features/settings"
	"serotonyl.ru/economy-bot/internal/features/shop"
	"serotonyl.ru/economy-bot/internal/features/tax"
)

// pendingLimit — сколько заявок каждого вида показывает /заявки.
const pendingLimit = 20

// Services — то, чем управляет консоль.
type Services struct {
	Members  *members.Service
	Ledger   *economy.Service
	Settings *settings.Service
	Shop     *shop.Service
	Events   *events.Service
	Orbs     *orbs.Service
	Tax      *tax.Service
}

// Handler обрабатывает админ-команды.
type Handler struct {
	service    *Service
	svc        Services
	bot        common.Sender
	loc        *time.Location
	treasuryID int64
	commands   map[string]func(ctx context.Context, msg *tgbotapi.Message, args []string, raw string)
}

func NewHandler(service *Service, svc Services, bot common.Sender, loc *time.Location, treasuryID int64) *Handler {
	h := &Handler{service: service, svc: svc, bot: bot, loc: loc, treasuryID: treasuryID}
	h.commands = map[string]func(context.Context, *tgbotapi.Message, []string, string){
		"/роль":         h.handleAddRole,
		"/снятьроль":    h.handleRemoveRole,
		"/настройка":    h.handleSet,
		"/настройки":    h.handleSettings,
		"/товар":        h.handleUpsertItem,
		"/удалитьтовар": h.handleDeleteItem,
		"/выдать":       h.handleIssue,
		"/изъять":       h.handleBurn,
		"/ивент":        h.handleCreateEvent,
		"/статус":       h.handleEventStatus,
		"/заявки":       h.handlePending,
		"/казна":        h.handleSupply,
		"/админ":        h.handleHelp,
	}
	return h
}

// HandleMessage обрабатывает личное сообщение. false — сообщение не для консоли.
func (h *Handler) HandleMessage(ctx context.Context, msg *tgbotapi.Message) bool {
	if msg.From == nil || msg.Chat == nil || !msg.Chat.IsPrivate() {
		return false
	}
	userID, chatID := msg.From.ID, msg.Chat.ID

	isAdmin, err := h.service.IsAdmin(ctx, userID)
	if err != nil {
		log.WithError(err).WithField("user_id", userID).Error("Ошибка проверки прав администратора")
		return false
	}
	if !isAdmin {
		return false
	}

	if h.service.AwaitingPassword(userID) {
		h.service.StopAwaiting(userID)
		h.handlePassword(ctx, chatID, userID, msg.Text)
		return true
	}

	cmd, raw := splitCommand(msg.Text)
	switch cmd {
	case "/вход":
		h.handleLogin(ctx, chatID, userID)
		return true
	case "/выход":
		if err := h.service.Logout(ctx, userID); err != nil {
			common.ReplyError(h.bot, chatID, userID, err, "Ошибка выхода из админ-панели")
			return true
		}
		common.SendText(h.bot, chatID, "👋 Сессия закрыта")
		return true
	}

	handler, ok := h.commands[cmd]
	if !ok {
		return false
	}

	active, err := h.service.HasActiveSession(ctx, userID)
	if err != nil {
		common.ReplyError(h.bot, chatID, userID, err, "Ошибка проверки сессии")
		return true
	}
	if !active {
		common.SendText(h.bot, chatID, "🔐 Сначала войдите: /вход")
		return true
	}

	log.WithFields(log.Fields{"user_id": userID, "command": cmd}).Info("Админ-команда")
	handler(ctx, msg, strings.Fields(raw), raw)
	return true
}

func (h *Handler) handleLogin(ctx context.Context, chatID, userID int64) {
	active, err := h.service.HasActiveSession(ctx, userID)
	if err != nil {
		common.ReplyError(h.bot, chatID, userID, err, "Ошибка проверки сессии")
		return
	}
	if active {
		common.SendText(h.bot, chatID, "✅ Вы уже в админ-панели. Команды: /админ")
		return
	}
	h.service.AwaitPassword(userID)
	common.SendText(h.bot, chatID, "🔐 Введите пароль для доступа к админ-панели:")
}

func (h *Handler) handlePassword(ctx context.Context, chatID, userID int64, password string) {
	if _, err := h.service.Login(ctx, userID, password); err != nil {
		switch {
		case errors.Is(err, common.ErrWrongPassword), errors.Is(err, common.ErrTooManyAttempts):
			common.SendText(h.bot, chatID, "❌ "+err.Error())
		default:
			common.ReplyError(h.bot, chatID, userID, err, "Ошибка входа в админ-панель")
		}
		return
	}
	common.SendText(h.bot, chatID, "✅ Аутентификация успешна! Сессия на 24 часа. Команды: /админ")
}

func (h *Handler) handleHelp(_ context.Context, msg *tgbotapi.Message, _ []string, _ string) {
	common.SendText(h.bot, msg.Chat.ID, helpText)
}

const helpText = `🛠 Админ-панель

/роль @user роль — выдать роль
/снятьроль @user роль — снять роль
/настройка ключ значение — изменить настройку
/настройки — все настройки
/товар id цена Название | описание — добавить или изменить товар
/удалитьтовар id — убрать товар
/выдать @user сумма [причина] — начислить монеты
/изъять @user сумма [причина] — списать монеты
/ивент Название | 01.05.2026 18:00 | награда | мест | роль — создать ивент
/статус id active|finished|cancelled — сменить статус ивента
/заявки — нерешённые заявки
/казна — сверка денежной массы
/выход — закрыть сессию`

// --- Роли ---

func (h *Handler) handleAddRole(ctx context.Context, msg *tgbotapi.Message, args []string, _ string) {
	h.changeRole(ctx, msg, args, true)
}

func (h *Handler) handleRemoveRole(ctx context.Context, msg *tgbotapi.Message, args []string, _ string) {
	h.changeRole(ctx, msg, args, false)
}

func (h *Handler) changeRole(ctx context.Context, msg *tgbotapi.Message, args []string, add bool) {
	chatID := msg.Chat.ID
	if len(args) < 2 || common.ParseMention(args[0]) == "" {
		common.SendText(h.bot, chatID, "❌ Формат: /роль @username роль")
		return
	}
	m, err := h.svc.Members.GetByUsername(ctx, common.ParseMention(args[0]))
	if err != nil {
		common.ReplyError(h.bot, chatID, msg.From.ID, err, "Ошибка поиска участника")
		return
	}

	role := strings.Join(args[1:], " ")
	var roles []string
	if add {
		roles, err = h.svc.Members.AddRole(ctx, m.UserID, role)
	} else {
		roles, err = h.svc.Members.RemoveRole(ctx, m.UserID, role)
	}
	if err != nil {
		common.ReplyError(h.bot, chatID, msg.From.ID, err, "Ошибка изменения ролей")
		return
	}
	common.SendText(h.bot, chatID, fmt.Sprintf("✅ Роли %s: %s", m.DisplayName(), formatRoles(roles)))
}

func formatRoles(roles []string) string {
	if len(roles) == 0 {
		return "нет"
	}
	return strings.Join(roles, ", ")
}

// --- Настройки ---

func (h *Handler) handleSet(ctx context.Context, msg *tgbotapi.Message, args []string, _ string) {
	if len(args) < 2 {
		common.SendText(h.bot, msg.Chat.ID, "❌ Формат: /настройка ключ значение")
		return
	}
	key, value := args[0], strings.Join(args[1:], " ")
	if err := h.svc.Settings.Set(ctx, key, value); err != nil {
		common.ReplyError(h.bot, msg.Chat.ID, msg.From.ID, err, "Ошибка изменения настройки")
		return
	}
	common.SendText(h.bot, msg.Chat.ID, fmt.Sprintf("✅ %s = %s", key, value))
}

func (h *Handler) handleSettings(ctx context.Context, msg *tgbotapi.Message, _ []string, _ string) {
	entries, err := h.svc.Settings.All(ctx)
	if err != nil {
		common.ReplyError(h.bot, msg.Chat.ID, msg.From.ID, err, "Ошибка чтения настроек")
		return
	}
	common.SendText(h.bot, msg.Chat.ID, FormatSettings(entries))
}

// FormatSettings — список настроек; значения по умолчанию помечены.
func FormatSettings(entries []settings.Entry) string {
	var sb strings.Builder
	sb.WriteString("⚙️ Настройки\n")
	for _, e := range entries {
		value := e.Value
		if value == "" {
			value = "—"
		}
		sb.WriteString(fmt.Sprintf("\n%s = %s", e.Key, value))
		if e.Default {
			sb.WriteString(" (по умолчанию)")
		}
	}
	return sb.String()
}

// --- Магазин ---

func (h *Handler) handleUpsertItem(ctx context.Context, msg *tgbotapi.Message, args []string, raw string) {
	chatID := msg.Chat.ID
	if len(args) < 3 {
		common.SendText(h.bot, chatID, "❌ Формат: /товар id цена Название | описание")
		return
	}
	price, err := strconv.ParseInt(args[1], 10, 64)
	if err != nil {
		common.ReplyError(h.bot, chatID, msg.From.ID, common.ErrInvalidPrice, "")
		return
	}

	name, description, _ := strings.Cut(skipFields(raw, 2), "|")

	item, err := h.svc.Shop.UpsertItem(ctx, args[0], strings.TrimSpace(name), price, strings.TrimSpace(description))
	if err != nil {
		common.ReplyError(h.bot, chatID, msg.From.ID, err, "Ошибка сохранения товара")
		return
	}
	common.SendText(h.bot, chatID, fmt.Sprintf("✅ Товар [%s] %s — %s", item.ItemID, item.Name, common.FormatBalance(item.Price)))
}

func (h *Handler) handleDeleteItem(ctx context.Context, msg *tgbotapi.Message, args []string, _ string) {
	if len(args) < 1 {
		common.SendText(h.bot, msg.Chat.ID, "❌ Формат: /удалитьтовар id")
		return
	}
	removed, err := h.svc.Shop.DeleteItem(ctx, args[0])
	if err != nil {
		common.ReplyError(h.bot, msg.Chat.ID, msg.From.ID, err, "Ошибка удаления товара")
		return
	}
	if !removed {
		common.ReplyError(h.bot, msg.Chat.ID, msg.From.ID, common.ErrItemNotFound, "")
		return
	}
	common.SendText(h.bot, msg.Chat.ID, fmt.Sprintf("🗑 Товар [%s] удалён", args[0]))
}

// --- Монеты ---

func (h *Handler) handleIssue(ctx context.Context, msg *tgbotapi.Message, args []string, _ string) {
	h.adjust(ctx, msg, args, true)
}

func (h *Handler) handleBurn(ctx context.Context, msg *tgbotapi.Message, args []string, _ string) {
	h.adjust(ctx, msg, args, false)
}

func (h *Handler) adjust(ctx context.Context, msg *tgbotapi.Message, args []string, issue bool) {
	chatID, adminID := msg.Chat.ID, msg.From.ID
	if len(args) < 2 || common.ParseMention(args[0]) == "" {
		common.SendText(h.bot, chatID, "❌ Формат: /выдать @username сумма [причина]")
		return
	}
	m, err := h.svc.Members.GetByUsername(ctx, common.ParseMention(args[0]))
	if err != nil {
		common.ReplyError(h.bot, chatID, adminID, err, "Ошибка поиска участника")
		return
	}
	amount, err := common.ParseAmount(args[1])
	if err != nil {
		common.ReplyError(h.bot, chatID, adminID, err, "")
		return
	}
	reason := strings.Join(args[2:], " ")

	var balance int64
	if issue {
		balance, err = h.svc.Ledger.Issue(ctx, adminID, m.UserID, amount, reason)
	} else {
		balance, err = h.svc.Ledger.Burn(ctx, adminID, m.UserID, amount, reason)
	}
	if err != nil {
		common.ReplyError(h.bot, chatID, adminID, err, "Ошибка корректировки баланса")
		return
	}

	verb := "Начислено"
	if !issue {
		verb = "Списано"
	}
	common.SendText(h.bot, chatID, fmt.Sprintf("✅ %s %s → %s\nБаланс: %s",
		verb, common.FormatBalance(amount), m.DisplayName(), common.FormatBalance(balance)))
}

// --- Ивенты ---

// EventArgs — разобранные аргументы /ивент.
type EventArgs struct {
	Name         string
	StartsAt     time.Time
	Reward       int64
	Capacity     *int
	RequiredRole string
}

// ParseEventArgs разбирает "Название | 01.05.2026 18:00 | награда | мест | роль".
// Награда, места и роль необязательны; 0 мест — без ограничения.
func ParseEventArgs(raw string, loc *time.Location) (EventArgs, error) {
	parts := strings.Split(raw, "|")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	if len(parts) < 2 || parts[0] == "" {
		return EventArgs{}, fmt.Errorf("нужны как минимум название и дата")
	}

	var (
		out EventArgs
		err error
	)
	out.Name = parts[0]
	out.StartsAt, err = time.ParseInLocation("02.01.2006 15:04", parts[1], loc)
	if err != nil {
		return EventArgs{}, fmt.Errorf("дата должна быть в формате ДД.ММ.ГГГГ ЧЧ:ММ")
	}
	if len(parts) > 2 && parts[2] != "" {
		out.Reward, err = strconv.ParseInt(parts[2], 10, 64)
		if err != nil || out.Reward < 0 {
			return EventArgs{}, fmt.Errorf("награда должна быть неотрицательным числом")
		}
	}
	if len(parts) > 3 && parts[3] != "" {
		n, err := strconv.Atoi(parts[3])
		if err != nil || n < 0 {
			return EventArgs{}, fmt.Errorf("число мест должно быть неотрицательным")
		}
		if n > 0 {
			out.Capacity = &n
		}
	}
	if len(parts) > 4 {
		out.RequiredRole = parts[4]
	}
	return out, nil
}

func (h *Handler) handleCreateEvent(ctx context.Context, msg *tgbotapi.Message, _ []string, raw string) {
	chatID := msg.Chat.ID
	a, err := ParseEventArgs(raw, h.loc)
	if err != nil {
		common.SendText(h.bot, chatID, "❌ "+err.Error()+"\nФормат: /ивент Название | 01.05.2026 18:00 | награда | мест | роль")
		return
	}
	e, err := h.svc.Events.Create(ctx, a.Name, a.StartsAt, a.Capacity, a.Reward, a.RequiredRole)
	if err != nil {
		common.ReplyError(h.bot, chatID, msg.From.ID, err, "Ошибка создания ивента")
		return
	}
	common.SendText(h.bot, chatID, fmt.Sprintf("✅ Ивент #%d «%s» создан на %s",
		e.ID, e.Name, common.FormatDateTime(e.StartsAt, h.loc)))
}

func (h *Handler) handleEventStatus(ctx context.Context, msg *tgbotapi.Message, args []string, _ string) {
	chatID := msg.Chat.ID
	if len(args) < 2 {
		common.SendText(h.bot, chatID, "❌ Формат: /статус id active|finished|cancelled")
		return
	}
	id, err := strconv.ParseInt(strings.TrimPrefix(args[0], "#"), 10, 64)
	if err != nil {
		common.SendText(h.bot, chatID, "❌ Номер ивента должен быть числом")
		return
	}
	status, ok := events.ParseStatus(strings.ToLower(args[1]))
	if !ok {
		common.SendText(h.bot, chatID, "❌ Статусы: active, finished, cancelled")
		return
	}

	res, err := h.svc.Events.SetStatus(ctx, id, status)
	if err != nil {
		common.ReplyError(h.bot, chatID, msg.From.ID, err, "Ошибка смены статуса ивента")
		return
	}
	text := fmt.Sprintf("✅ Ивент #%d «%s»: %s", res.Event.ID, res.Event.Name, res.Event.Status.Label())
	if res.Paid > 0 {
		text += fmt.Sprintf("\nНаграда %s выдана %d участникам", common.FormatBalance(res.Event.Reward), res.Paid)
	}
	common.SendText(h.bot, chatID, text)
}

// --- Заявки и казна ---

func (h *Handler) handlePending(ctx context.Context, msg *tgbotapi.Message, _ []string, _ string) {
	orbList, err := h.svc.Orbs.Pending(ctx, pendingLimit)
	if err != nil {
		common.ReplyError(h.bot, msg.Chat.ID, msg.From.ID, err, "Ошибка чтения заявок")
		return
	}
	taxList, err := h.svc.Tax.Pending(ctx, pendingLimit)
	if err != nil {
		common.ReplyError(h.bot, msg.Chat.ID, msg.From.ID, err, "Ошибка чтения заявок")
		return
	}

	if len(orbList) == 0 && len(taxList) == 0 {
		common.SendText(h.bot, msg.Chat.ID, "📭 Нерешённых заявок нет")
		return
	}
	var sb strings.Builder
	sb.WriteString("📬 Нерешённые заявки\n")
	for _, s := range orbList {
		sb.WriteString(fmt.Sprintf("\n🔮 орб #%d от %d · %d участников · %s · %s",
			s.ID, s.SubmitterID, len(s.Payload.Participants), common.FormatBalance(s.Amount),
			common.FormatDateTime(s.CreatedAt, h.loc)))
	}
	for _, s := range taxList {
		sb.WriteString(fmt.Sprintf("\n🧾 налог #%d от %d · %s · %s",
			s.ID, s.SubmitterID, common.FormatBalance(s.Amount), common.FormatDateTime(s.CreatedAt, h.loc)))
	}
	sb.WriteString("\n\nРешение — кнопками под постом в чате модерации")
	common.SendText(h.bot, msg.Chat.ID, sb.String())
}

func (h *Handler) handleSupply(ctx context.Context, msg *tgbotapi.Message, _ []string, _ string) {
	supply, err := h.svc.Ledger.Supply(ctx)
	if err != nil {
		common.ReplyError(h.bot, msg.Chat.ID, msg.From.ID, err, "Ошибка сверки казны")
		return
	}
	treasury, err := h.svc.Ledger.GetBalance(ctx, h.treasuryID)
	if err != nil {
		common.ReplyError(h.bot, msg.Chat.ID, msg.From.ID, err, "Ошибка сверки казны")
		return
	}
	common.SendText(h.bot, msg.Chat.ID, FormatSupply(supply, treasury))
}

// FormatSupply — ответ на /казна.
func FormatSupply(s economy.Supply, treasury int64) string {
	check := "✅ журнал сходится с балансами"
	if !s.Consistent() {
		check = fmt.Sprintf("⚠️ расхождение: %s", common.FormatCoinsAmount(s.Balances-s.Journal))
	}
	return fmt.Sprintf("🏦 Казна\n\nСчетов: %d\nНа счетах: %s\nПо журналу: %s\nВ казне магазина: %s\n\n%s",
		s.Accounts, common.FormatBalance(s.Balances), common.FormatBalance(s.Journal),
		common.FormatBalance(treasury), check)
}

// skipFields отбрасывает n первых слов и возвращает остаток как есть.
func skipFields(s string, n int) string {
	for i := 0; i < n; i++ {
		s = strings.TrimLeft(s, " \t\n")
		idx := strings.IndexAny(s, " \t\n")
		if idx < 0 {
			return ""
		}
		s = s[idx:]
	}
	return strings.TrimSpace(s)
}

// splitCommand отделяет команду от аргументов: "/роль@bot @x vip" → ("/роль", "@x vip").
func splitCommand(text string) (cmd, rest string) {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "/") {
		return "", ""
	}
	cmd, rest, _ = strings.Cut(text, " ")
	if at := strings.Index(cmd, "@"); at > 0 {
		cmd = cmd[:at]
	}
	return strings.ToLower(cmd), strings.TrimSpace(rest)
}
