// Package app инициализирует все компоненты приложения.
// app.go — точка сборки: создаёт БД-пул, кэш, репозитории, сервисы,
// обработчики, фильтры и собирает всё в один объект Bot.
package app

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/cashier-bot/internal/bot"
	"serotonyl.ru/cashier-bot/internal/bot/filters"
	"serotonyl.ru/cashier-bot/internal/cache"
	"serotonyl.ru/cashier-bot/internal/config"
	"serotonyl.ru/cashier-bot/internal/db/postgres"
	"serotonyl.ru/cashier-bot/internal/features/admin"
	"serotonyl.ru/cashier-bot/internal/features/gifts"
	"serotonyl.ru/cashier-bot/internal/features/ledger"
	"serotonyl.ru/cashier-bot/internal/features/payments"
	"serotonyl.ru/cashier-bot/internal/features/referrals"
	"serotonyl.ru/cashier-bot/internal/features/sessions"
	"serotonyl.ru/cashier-bot/internal/features/settings"
	"serotonyl.ru/cashier-bot/internal/features/users"
	"serotonyl.ru/cashier-bot/internal/jobs"
)

// App содержит все компоненты приложения.
type App struct {
	Bot       *bot.Bot
	Scheduler *jobs.Scheduler
	DB        *pgxpool.Pool
	BotAPI    *tgbotapi.BotAPI
}

// New создаёт и инициализирует приложение.
// Порядок инициализации важен — компоненты зависят друг от друга.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	// === 1. База данных ===
	pool, err := postgres.NewPool(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("ошибка подключения к БД: %w", err)
	}

	if err := runMigrations(ctx, pool); err != nil {
		return nil, fmt.Errorf("ошибка миграций: %w", err)
	}

	// === 2. Telegram Bot API ===
	botAPI, err := tgbotapi.NewBotAPI(cfg.TelegramBotToken)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания Telegram API: %w", err)
	}
	botAPI.Debug = cfg.AppEnv == "development"
	log.Infof("Авторизован как @%s", botAPI.Self.UserName)

	// === 3. Кэш ===
	c, err := cache.New(cfg.CacheMaxEntries)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания кэша: %w", err)
	}

	// === 4. Репозитории ===
	userRepo := users.NewRepository(pool, cfg.DBQueryTimeout)
	ledgerRepo := ledger.NewRepository(pool, cfg.DBQueryTimeout)
	sessionRepo := sessions.NewRepository(pool, cfg.DBQueryTimeout)
	settingRepo := settings.NewRepository(pool, cfg.DBQueryTimeout)
	giftRepo := gifts.NewRepository(pool, ledgerRepo, cfg.DBQueryTimeout)
	referralRepo := referrals.NewRepository(pool, ledgerRepo, cfg.DBQueryTimeout)
	paymentRepo := payments.NewRepository(pool, cfg.DBQueryTimeout)
	adminRepo := admin.NewRepository(pool, cfg.DBQueryTimeout)

	// === 5. Сервисы ===
	userService := users.NewService(userRepo, c, cfg.CacheAccountTTL)
	ledgerService := ledger.NewService(ledgerRepo, c)
	sessionService := sessions.NewService(sessionRepo, c, cfg.SessionTTL)
	settingService := settings.NewService(settingRepo, c, cfg.CacheSettingTTL)
	giftService := gifts.NewService(giftRepo, ledgerService, userService, settingService, c)
	referralService := referrals.NewService(referralRepo, userService, settingService, c)
	paymentService := payments.NewService(paymentRepo, ledgerService, settingService)
	adminService := admin.NewService(adminRepo, ledgerService, referralService, cfg, c)

	// Сеем дефолты настроек и платёжных методов
	if err := settingService.EnsureDefaults(ctx); err != nil {
		return nil, fmt.Errorf("ошибка инициализации настроек: %w", err)
	}
	if err := paymentService.EnsureDefaults(ctx); err != nil {
		return nil, fmt.Errorf("ошибка инициализации платёжных методов: %w", err)
	}

	// === 6. Обработчики ===
	userHandler := users.NewHandler(userService, ledgerService, botAPI)
	referralHandler := referrals.NewHandler(referralService, userService, botAPI.Self.UserName)
	adminHandler := admin.NewHandler(adminService, sessionService, userService, ledgerService,
		paymentService, settingService, giftService, botAPI)
	paymentHandler := payments.NewHandler(paymentService, sessionService, ledgerService, adminHandler, botAPI)
	giftHandler := gifts.NewHandler(giftService, sessionService, botAPI)

	// === 7. Фильтры ===
	accessFilter := filters.NewAccessFilter(userService, settingService, adminService, botAPI)

	// === 8. Собираем бота ===
	b := bot.New(
		botAPI, cfg, accessFilter,
		userService, sessionService, paymentService, adminService,
		userHandler, referralHandler, paymentHandler, giftHandler, adminHandler,
	)

	// === 9. Планировщик задач ===
	scheduler := jobs.NewScheduler(referralService, sessionService, giftService, adminService)

	return &App{
		Bot:       b,
		Scheduler: scheduler,
		DB:        pool,
		BotAPI:    botAPI,
	}, nil
}

// runMigrations выполняет все SQL-миграции по порядку.
func runMigrations(ctx context.Context, pool *pgxpool.Pool) error {
	if err := postgres.InitMigrations(ctx, pool); err != nil {
		return err
	}

	migrations := []struct {
		version int
		sql     string
	}{
		{1, migration001Accounts},
		{2, migration002Transactions},
		{3, migration003Sessions},
		{4, migration004Settings},
		{5, migration005PaymentMethods},
		{6, migration006Referrals},
		{7, migration007Gifts},
		{8, migration008Admin},
	}

	for _, m := range migrations {
		if err := postgres.ExecMigrationSQL(ctx, pool, m.version, m.sql); err != nil {
			return fmt.Errorf("миграция %d: %w", m.version, err)
		}
	}
	return nil
}
