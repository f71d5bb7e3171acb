package events

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"serotonyl.ru/economy-bot/internal/common"
	"serotonyl.ru/economy-bot/internal/features/members"
)

type Handler struct {
	service *Service
	members *members.Service
	bot     common.Sender
	loc     *time.Location
}

func NewHandler(service *Service, memberService *members.Service, bot common.Sender, loc *time.Location) *Handler {
	return &Handler{service: service, members: memberService, bot: bot, loc: loc}
}

// HandleList — !ивенты.
func (h *Handler) HandleList(ctx context.Context, msg *tgbotapi.Message) {
	list, err := h.service.Upcoming(ctx, time.Now(), DefaultListLimit)
	if err != nil {
		common.ReplyError(h.bot, msg.Chat.ID, msg.From.ID, err, "Ошибка чтения ивентов")
		return
	}
	common.SendText(h.bot, msg.Chat.ID, FormatList(list, msg.From.ID, h.loc))
}

// HandleRegister — !записаться <номер>.
func (h *Handler) HandleRegister(ctx context.Context, msg *tgbotapi.Message, args []string) {
	id, ok := parseID(args)
	if !ok {
		common.SendText(h.bot, msg.Chat.ID, "❌ Формат: !записаться номер_ивента\nСписок: !ивенты")
		return
	}

	roles, err := h.members.Roles(ctx, msg.From.ID)
	if err != nil {
		common.ReplyError(h.bot, msg.Chat.ID, msg.From.ID, err, "Ошибка чтения ролей")
		return
	}

	e, added, err := h.service.Register(ctx, id, msg.From.ID, roles)
	if err != nil {
		common.ReplyError(h.bot, msg.Chat.ID, msg.From.ID, err, "Ошибка записи на ивент")
		return
	}
	if !added {
		common.SendText(h.bot, msg.Chat.ID, fmt.Sprintf("ℹ️ Ты уже записан на «%s»", e.Name))
		return
	}
	common.SendText(h.bot, msg.Chat.ID, fmt.Sprintf("✅ %s записан на «%s» (%s)",
		common.DisplayName(msg.From), e.Name, seats(e)))
}

// HandleUnregister — !отписаться <номер>.
func (h *Handler) HandleUnregister(ctx context.Context, msg *tgbotapi.Message, args []string) {
	id, ok := parseID(args)
	if !ok {
		common.SendText(h.bot, msg.Chat.ID, "❌ Формат: !отписаться номер_ивента")
		return
	}

	removed, err := h.service.Unregister(ctx, id, msg.From.ID)
	if err != nil {
		common.ReplyError(h.bot, msg.Chat.ID, msg.From.ID, err, "Ошибка отписки от ивента")
		return
	}
	if !removed {
		common.SendText(h.bot, msg.Chat.ID, "ℹ️ Ты не был записан на этот ивент")
		return
	}
	common.SendText(h.bot, msg.Chat.ID, "👋 Запись на ивент отменена")
}

// FormatList собирает список ивентов. Ивенты, на которые записан
// userID, помечаются галочкой.
func FormatList(list []*Event, userID int64, loc *time.Location) string {
	if len(list) == 0 {
		return "📅 Ближайших ивентов нет"
	}
	var sb strings.Builder
	sb.WriteString("📅 Ивенты\n")
	for _, e := range list {
		mark := ""
		if e.Registered(userID) {
			mark = " ✅"
		}
		sb.WriteString(fmt.Sprintf("\n#%d %s%s\n   %s · %s · %s",
			e.ID, e.Name, mark, common.FormatDateTime(e.StartsAt, loc), e.Status.Label(), seats(e)))
		if e.Reward > 0 {
			sb.WriteString(" · награда " + common.FormatBalance(e.Reward))
		}
		if e.RequiredRole != "" {
			sb.WriteString(" · только для «" + e.RequiredRole + "»")
		}
	}
	sb.WriteString("\n\nЗаписаться: !записаться номер")
	return sb.String()
}

func seats(e *Event) string {
	if e.Capacity == nil {
		return fmt.Sprintf("записано %d", len(e.Participants))
	}
	return fmt.Sprintf("мест %d/%d", len(e.Participants), *e.Capacity)
}

func parseID(args []string) (int64, bool) {
	if len(args) < 1 {
		return 0, false
	}
	id, err := strconv.ParseInt(strings.TrimPrefix(args[0], "#"), 10, 64)
	return id, err == nil && id > 0
}
