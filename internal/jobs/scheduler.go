// Package jobs управляет фоновыми задачами (cron).
// scheduler.go настраивает расписание: ночная выплата реферальных
// комиссий и регулярная чистка протухших данных.
package jobs

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/cashier-bot/internal/features/admin"
	"serotonyl.ru/cashier-bot/internal/features/gifts"
	"serotonyl.ru/cashier-bot/internal/features/referrals"
	"serotonyl.ru/cashier-bot/internal/features/sessions"
)

// Scheduler управляет фоновыми задачами.
type Scheduler struct {
	cron            *cron.Cron
	referralService *referrals.Service
	sessionService  *sessions.Service
	giftService     *gifts.Service
	adminService    *admin.Service
}

// NewScheduler создаёт планировщик задач с московским часовым поясом.
func NewScheduler(r *referrals.Service, s *sessions.Service, g *gifts.Service, a *admin.Service) *Scheduler {
	loc, err := time.LoadLocation("Europe/Moscow")
	if err != nil {
		log.WithError(err).Warn("Не удалось загрузить Europe/Moscow, используем UTC+3")
		loc = time.FixedZone("MSK", 3*60*60)
	}

	return &Scheduler{
		cron:            cron.New(cron.WithLocation(loc)),
		referralService: r,
		sessionService:  s,
		giftService:     g,
		adminService:    a,
	}
}

// Start запускает все фоновые задачи.
func (s *Scheduler) Start(ctx context.Context) {
	// Выплата реферальных комиссий ночью, когда нагрузка минимальна
	s.cron.AddFunc("0 3 * * *", func() {
		log.Info("[CRON] Выплата реферальных комиссий")
		paid, err := s.referralService.Distribute(ctx)
		if err != nil {
			log.WithError(err).Error("[CRON] Ошибка выплаты комиссий")
			return
		}
		log.WithField("paid", paid).Info("[CRON] Выплата комиссий завершена")
	})

	// Протухшие диалоги чистим каждые 10 минут
	s.cron.AddFunc("*/10 * * * *", func() {
		if err := s.sessionService.CleanupExpired(ctx); err != nil {
			log.WithError(err).Error("[CRON] Ошибка чистки сессий")
		}
	})

	// Истёкшие подарочные коды и старые админ-сессии — раз в сутки
	s.cron.AddFunc("30 4 * * *", func() {
		if err := s.giftService.CleanupExpired(ctx); err != nil {
			log.WithError(err).Error("[CRON] Ошибка чистки кодов")
		}
		if err := s.adminService.CleanupStale(ctx); err != nil {
			log.WithError(err).Error("[CRON] Ошибка чистки админ-сессий")
		}
	})

	s.cron.Start()
	log.Info("Планировщик задач запущен (Europe/Moscow)")
}

// Stop останавливает планировщик.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	log.Info("Планировщик задач остановлен")
}
