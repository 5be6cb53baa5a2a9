package sqlite

import "database/sql"

// schema contains the SQL statements to set up the database schema.
// These run on startup to ensure tables exist.
// Money is stored as TEXT decimal strings; timestamps as Unix nanoseconds (UTC).
const schema = `
CREATE TABLE IF NOT EXISTS stokvels (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    type TEXT NOT NULL,
    currency TEXT NOT NULL,
    contribution_amount TEXT NOT NULL,
    target_amount TEXT NOT NULL DEFAULT '0',
    manual_shape TEXT NOT NULL DEFAULT '',
    value_basis TEXT NOT NULL DEFAULT 'cash',
    late_payment_penalty_rate TEXT NOT NULL DEFAULT '0',
    grace_period_days INTEGER NOT NULL DEFAULT 0,
    joining_fee TEXT NOT NULL DEFAULT '0',
    require_payment_verification INTEGER NOT NULL DEFAULT 1,
    allow_emergency_withdrawals INTEGER NOT NULL DEFAULT 0,
    emergency_withdrawal_limit TEXT NOT NULL DEFAULT '0',
    minimum_rollover_balance TEXT NOT NULL DEFAULT '0',
    due_day_of_month INTEGER NOT NULL DEFAULT 1,
    created_at INTEGER NOT NULL,
    payout_version INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS members (
    id TEXT PRIMARY KEY,
    stokvel_id TEXT NOT NULL,
    user_id TEXT NOT NULL,
    display_name TEXT NOT NULL DEFAULT '',
    rotation_order INTEGER NOT NULL,
    status TEXT NOT NULL,
    eligible_from_cycle INTEGER NOT NULL DEFAULT 1,
    joined_at INTEGER NOT NULL,
    UNIQUE (stokvel_id, rotation_order),
    FOREIGN KEY (stokvel_id) REFERENCES stokvels(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS contributions (
    id TEXT PRIMARY KEY,
    stokvel_id TEXT NOT NULL,
    member_id TEXT NOT NULL,
    cycle_number INTEGER NOT NULL,
    period TEXT NOT NULL,
    amount TEXT NOT NULL,
    counted_amount TEXT NOT NULL DEFAULT '0',
    status TEXT NOT NULL,
    proof_ref TEXT NOT NULL DEFAULT '',
    reject_reason TEXT NOT NULL DEFAULT '',
    recorded_at INTEGER NOT NULL,
    decided_at INTEGER,
    FOREIGN KEY (stokvel_id) REFERENCES stokvels(id) ON DELETE CASCADE,
    FOREIGN KEY (member_id) REFERENCES members(id)
);

CREATE TABLE IF NOT EXISTS cycles (
    stokvel_id TEXT NOT NULL,
    cycle_number INTEGER NOT NULL,
    version INTEGER NOT NULL,
    settled INTEGER NOT NULL DEFAULT 0,
    settled_at INTEGER,
    PRIMARY KEY (stokvel_id, cycle_number),
    FOREIGN KEY (stokvel_id) REFERENCES stokvels(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS payouts (
    id TEXT PRIMARY KEY,
    stokvel_id TEXT NOT NULL,
    member_id TEXT NOT NULL,
    cycle_number INTEGER NOT NULL,
    amount TEXT NOT NULL,
    nominal_value TEXT NOT NULL,
    kind TEXT NOT NULL,
    trigger_ref TEXT NOT NULL,
    status TEXT NOT NULL,
    processed_at INTEGER,
    UNIQUE (stokvel_id, member_id, cycle_number, kind),
    FOREIGN KEY (stokvel_id) REFERENCES stokvels(id) ON DELETE CASCADE,
    FOREIGN KEY (member_id) REFERENCES members(id)
);

CREATE TABLE IF NOT EXISTS adjustments (
    id TEXT PRIMARY KEY,
    stokvel_id TEXT NOT NULL,
    member_id TEXT NOT NULL,
    cycle_number INTEGER NOT NULL,
    net_position TEXT NOT NULL,
    adjustment_amount TEXT NOT NULL,
    settled INTEGER NOT NULL DEFAULT 0,
    created_at INTEGER NOT NULL,
    settled_at INTEGER,
    UNIQUE (stokvel_id, cycle_number, member_id),
    FOREIGN KEY (stokvel_id) REFERENCES stokvels(id) ON DELETE CASCADE,
    FOREIGN KEY (member_id) REFERENCES members(id)
);

CREATE INDEX IF NOT EXISTS idx_members_stokvel_id ON members(stokvel_id);
CREATE INDEX IF NOT EXISTS idx_contributions_stokvel_recorded ON contributions(stokvel_id, recorded_at);
CREATE INDEX IF NOT EXISTS idx_contributions_member_id ON contributions(member_id);
CREATE INDEX IF NOT EXISTS idx_payouts_stokvel_cycle ON payouts(stokvel_id, cycle_number);
CREATE INDEX IF NOT EXISTS idx_adjustments_stokvel_cycle ON adjustments(stokvel_id, cycle_number);
`

// runMigrations executes the schema setup.
func runMigrations(db *sql.DB) error {
	_, err := db.Exec(schema)
	return err
}
