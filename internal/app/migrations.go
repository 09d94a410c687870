// SQL-миграции встроены в код для упрощения деплоя.
package app

var migration001Accounts = `
CREATE TABLE IF NOT EXISTS accounts (
    user_id         BIGINT PRIMARY KEY,
    balance         BIGINT NOT NULL DEFAULT 0 CHECK (balance >= 0),
    total_deposited BIGINT NOT NULL DEFAULT 0,
    total_withdrawn BIGINT NOT NULL DEFAULT 0,
    referral_code   TEXT UNIQUE,
    referred_by     BIGINT REFERENCES accounts(user_id),
    is_banned       BOOLEAN NOT NULL DEFAULT FALSE,
    ban_reason      TEXT,
    ban_until       TIMESTAMPTZ,
    created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    last_active     TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_accounts_referred_by ON accounts(referred_by);
`

var migration002Transactions = `
CREATE TABLE IF NOT EXISTS transactions (
    id                 BIGSERIAL PRIMARY KEY,
    user_id            BIGINT NOT NULL REFERENCES accounts(user_id),
    kind               TEXT NOT NULL,
    amount             BIGINT NOT NULL CHECK (amount > 0),
    status             TEXT NOT NULL DEFAULT 'approved',
    payment_method     TEXT,
    external_reference TEXT,
    details            TEXT,
    admin_id           BIGINT,
    created_at         TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    processed_at       TIMESTAMPTZ
);

CREATE INDEX IF NOT EXISTS idx_transactions_user
    ON transactions(user_id, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_transactions_pending
    ON transactions(created_at) WHERE status = 'pending';

-- Один номер платежа принимается не более одного раза на метод
CREATE UNIQUE INDEX IF NOT EXISTS uq_transactions_method_reference
    ON transactions(payment_method, external_reference)
    WHERE external_reference IS NOT NULL;
`

var migration003Sessions = `
CREATE TABLE IF NOT EXISTS sessions (
    user_id    BIGINT PRIMARY KEY,
    step       TEXT NOT NULL,
    payload    JSONB NOT NULL DEFAULT '{}',
    expires_at TIMESTAMPTZ NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_sessions_expires ON sessions(expires_at);
`

var migration004Settings = `
CREATE TABLE IF NOT EXISTS system_settings (
    key        TEXT PRIMARY KEY,
    value      TEXT NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS settings_audit (
    id         BIGSERIAL PRIMARY KEY,
    key        TEXT NOT NULL,
    old_value  TEXT,
    new_value  TEXT NOT NULL,
    admin_id   BIGINT NOT NULL,
    reason     TEXT,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_settings_audit_key
    ON settings_audit(key, created_at DESC);
`

var migration005PaymentMethods = `
CREATE TABLE IF NOT EXISTS payment_methods (
    key        TEXT PRIMARY KEY,
    title      TEXT NOT NULL,
    currency   TEXT NOT NULL,
    min_amount BIGINT NOT NULL,
    max_amount BIGINT NOT NULL,
    enabled    BOOLEAN NOT NULL DEFAULT TRUE,
    paused     BOOLEAN NOT NULL DEFAULT FALSE,
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
`

var migration006Referrals = `
CREATE TABLE IF NOT EXISTS referrals (
    id                BIGSERIAL PRIMARY KEY,
    referrer_id       BIGINT NOT NULL REFERENCES accounts(user_id),
    referred_id       BIGINT NOT NULL UNIQUE REFERENCES accounts(user_id),
    active            BOOLEAN NOT NULL DEFAULT FALSE,
    amount_charged    BIGINT NOT NULL DEFAULT 0,
    commission_earned BIGINT NOT NULL DEFAULT 0,
    activated_at      TIMESTAMPTZ,
    created_at        TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_referrals_referrer ON referrals(referrer_id);
`

var migration007Gifts = `
CREATE TABLE IF NOT EXISTS gift_codes (
    id         BIGSERIAL PRIMARY KEY,
    code       TEXT NOT NULL CONSTRAINT uq_gift_codes_code UNIQUE,
    amount     BIGINT NOT NULL CHECK (amount > 0),
    max_uses   INT NOT NULL CHECK (max_uses > 0),
    used_count INT NOT NULL DEFAULT 0,
    expires_at TIMESTAMPTZ,
    created_by BIGINT NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS gift_code_usage (
    id      BIGSERIAL PRIMARY KEY,
    code_id BIGINT NOT NULL REFERENCES gift_codes(id) ON DELETE CASCADE,
    user_id BIGINT NOT NULL,
    used_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    CONSTRAINT uq_gift_code_usage UNIQUE (code_id, user_id)
);

CREATE TABLE IF NOT EXISTS gift_transfers (
    id          BIGSERIAL PRIMARY KEY,
    sender_id   BIGINT NOT NULL,
    receiver_id BIGINT NOT NULL,
    amount      BIGINT NOT NULL,
    fee         BIGINT NOT NULL,
    net         BIGINT NOT NULL,
    created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_gift_transfers_sender
    ON gift_transfers(sender_id, created_at DESC);
`

var migration008Admin = `
CREATE TABLE IF NOT EXISTS admins (
    user_id    BIGINT PRIMARY KEY,
    added_by   BIGINT NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS admin_sessions (
    id               BIGSERIAL PRIMARY KEY,
    user_id          BIGINT NOT NULL,
    session_token    TEXT NOT NULL,
    authenticated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    expires_at       TIMESTAMPTZ NOT NULL,
    last_activity    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    is_active        BOOLEAN NOT NULL DEFAULT TRUE
);

CREATE INDEX IF NOT EXISTS idx_admin_sessions_user
    ON admin_sessions(user_id, is_active);

CREATE TABLE IF NOT EXISTS admin_login_attempts (
    id           BIGSERIAL PRIMARY KEY,
    user_id      BIGINT NOT NULL,
    success      BOOLEAN NOT NULL,
    attempt_time TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_admin_login_attempts_user
    ON admin_login_attempts(user_id, attempt_time DESC);
`
