// Package app инициализирует все компоненты приложения.
// app.go — точка сборки: создаёт БД, репозитории, сервисы, обработчики,
// фильтры, планировщик и сервер метрик.
package app

import (
	"context"
	"fmt"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/economy-bot/internal/bot"
	"serotonyl.ru/economy-bot/internal/bot/filters"
	"serotonyl.ru/economy-bot/internal/config"
	"serotonyl.ru/economy-bot/internal/db/postgres"
	"serotonyl.ru/economy-bot/internal/features/activity"
	"serotonyl.ru/economy-bot/internal/features/admin"
	"serotonyl.ru/economy-bot/internal/features/economy"
	"serotonyl.ru/economy-bot/internal/features/events"
	"serotonyl.ru/economy-bot/internal/features/members"
	"serotonyl.ru/economy-bot/internal/features/orbs"
	"serotonyl.ru/economy-bot/internal/features/settings"
	"serotonyl.ru/economy-bot/internal/features/shop"
	"serotonyl.ru/economy-bot/internal/features/tax"
	"serotonyl.ru/economy-bot/internal/jobs"
	"serotonyl.ru/economy-bot/internal/metrics"
)

// cooldownIdleTTL — через сколько молчания забываем паузу пользователя.
const cooldownIdleTTL = time.Hour

// App содержит все компоненты приложения.
type App struct {
	Bot       *bot.Bot
	Scheduler *jobs.Scheduler
	DB        *postgres.DB
	BotAPI    *tgbotapi.BotAPI
	Metrics   *metrics.Server
}

// New создаёт и инициализирует приложение.
// Порядок инициализации важен — компоненты зависят друг от друга.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	loc := cfg.Location()

	// === 1. База данных ===
	db, err := postgres.NewPool(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("ошибка подключения к БД: %w", err)
	}

	if err := postgres.RunMigrations(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("ошибка миграций: %w", err)
	}

	// === 2. Telegram Bot API ===
	botAPI, err := tgbotapi.NewBotAPI(cfg.TelegramBotToken)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("ошибка создания Telegram API: %w", err)
	}
	botAPI.Debug = cfg.AppEnv == "development" && cfg.AppLogLevel == "trace"
	log.Infof("Авторизован как @%s", botAPI.Self.UserName)

	// === 3. Репозитории ===
	memberRepo := members.NewRepository(db)
	settingsRepo := settings.NewRepository(db)
	economyRepo := economy.NewRepository(db)
	activityRepo := activity.NewRepository(db)
	shopRepo := shop.NewRepository(db)
	orbRepo := orbs.NewRepository(db)
	taxRepo := tax.NewRepository(db)
	eventRepo := events.NewRepository(db)
	adminRepo := admin.NewRepository(db)

	// === 4. Сервисы ===
	memberService := members.NewService(memberRepo)
	settingsService := settings.NewService(settingsRepo)
	economyService := economy.NewService(economyRepo)
	activityService := activity.NewService(activityRepo, economyService, settingsService, activity.NewCooldown(cooldownIdleTTL), loc)
	shopService := shop.NewService(shopRepo, economyService, cfg.EconomyTreasuryID)
	orbService := orbs.NewService(orbRepo, economyService, settingsService, memberService)
	taxService := tax.NewService(taxRepo, settingsService, memberService, loc)
	eventService := events.NewService(eventRepo, economyService)
	adminService := admin.NewService(adminRepo, memberService, cfg.AdminPasswordHash, cfg.AdminIDs)

	// === 5. Обработчики ===
	handlers := bot.Handlers{
		Members:  members.NewHandler(memberService),
		Economy:  economy.NewHandler(economyService, memberService, botAPI, loc),
		Rate:     economy.NewRateHandler(settingsService, botAPI),
		Shop:     shop.NewHandler(shopService, botAPI),
		Activity: activity.NewHandler(activityService, botAPI),
		Orbs:     orbs.NewHandler(orbService, memberService, botAPI),
		Tax:      tax.NewHandler(taxService, botAPI),
		Events:   events.NewHandler(eventService, memberService, botAPI, loc),
		Admin: admin.NewHandler(adminService, admin.Services{
			Members:  memberService,
			Ledger:   economyService,
			Settings: settingsService,
			Shop:     shopService,
			Events:   eventService,
			Orbs:     orbService,
			Tax:      taxService,
		}, botAPI, loc, cfg.EconomyTreasuryID),
	}

	// === 6. Фильтры ===
	chatFilter := filters.NewChatFilter(cfg.CommunityChatID, cfg.AdminIDs, memberService, settingsService, botAPI, botAPI)

	// === 7. Собираем бота ===
	b := bot.New(botAPI, botAPI, cfg, handlers, chatFilter)

	// === 8. Планировщик задач ===
	scheduler := jobs.NewScheduler(loc, jobs.Schedules{
		TaxSweep:      cfg.JobsTaxSweepSchedule,
		ActivityPrune: cfg.JobsActivityPruneSchedule,
		RetentionDays: cfg.ActivityRetentionDays,
	}, taxService, activityService, b.SendMessageToUser)

	// === 9. Метрики ===
	metricsServer := metrics.NewServer(cfg.MetricsAddr, db)

	return &App{
		Bot:       b,
		Scheduler: scheduler,
		DB:        db,
		BotAPI:    botAPI,
		Metrics:   metricsServer,
	}, nil
}
