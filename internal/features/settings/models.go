// Package settings хранит бизнес-настройки бота в БД.
// В отличие от конфигурации процесса (env), эти значения меняются
// администратором на лету, без перезапуска.
package settings

import "time"

// Ключи настроек. Дефолты сеются при старте (EnsureDefaults).
const (
	KeyMaintenanceMode    = "maintenance_mode"
	KeyMaintenanceMessage = "maintenance_message"

	KeyGiftFeePercent     = "gift_fee_percent"
	KeyWithdrawFeePercent = "withdraw_fee_percent"

	KeyReferralCommissionRate    = "referral_commission_rate"
	KeyReferralBonus             = "referral_bonus"
	KeyReferralMinActive         = "referral_min_active"
	KeyReferralMinCharge         = "referral_min_charge"
	KeyReferralActivationDeposit = "referral_activation_deposit"

	KeyDepositEnabled  = "deposit_enabled"
	KeyWithdrawEnabled = "withdraw_enabled"
	KeyExchangeRate    = "exchange_rate" // лир за 1 USD
)

// Defaults — значения, сеющиеся при первом запуске.
// Существующие строки не перезаписываются.
var Defaults = map[string]string{
	KeyMaintenanceMode:    "false",
	KeyMaintenanceMessage: "Бот на техническом обслуживании, попробуйте позже.",

	KeyGiftFeePercent:     "0",
	KeyWithdrawFeePercent: "0",

	KeyReferralCommissionRate:    "10",
	KeyReferralBonus:             "2000",
	KeyReferralMinActive:         "5",
	KeyReferralMinCharge:         "100000",
	KeyReferralActivationDeposit: "100000",

	KeyDepositEnabled:  "true",
	KeyWithdrawEnabled: "true",
	KeyExchangeRate:    "13000",
}

// Setting — одна настройка.
type Setting struct {
	Key       string    `db:"key"`
	Value     string    `db:"value"`
	UpdatedAt time.Time `db:"updated_at"`
}

// AuditEntry — запись журнала изменений настроек.
type AuditEntry struct {
	ID        int64     `db:"id"`
	Key       string    `db:"key"`
	OldValue  string    `db:"old_value"`
	NewValue  string    `db:"new_value"`
	AdminID   int64     `db:"admin_id"`
	Reason    string    `db:"reason"`
	CreatedAt time.Time `db:"created_at"`
}
