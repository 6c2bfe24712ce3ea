// Package settings stores the admin-editable runtime settings: the
// notification channel credentials and a few display fields.
package settings

import (
	"context"
	"fmt"
	"time"

	"github.com/giho-tech/helpdesk/internal/db"
)

// Settings is the single settings row.
type Settings struct {
	TelegramBotToken  string    `json:"telegramBotToken"`
	TelegramChatID    string    `json:"telegramChatId"`
	NotifyOnNewTicket bool      `json:"notifyOnNewTicket"`
	NotifyDailyReport bool      `json:"notifyDailyReport"`
	AIEnabled         bool      `json:"aiEnabled"`
	CompanyName       string    `json:"companyName"`
	SupportPhone      string    `json:"supportPhone"`
	WorkingHours      string    `json:"workingHours"`
	UpdatedAt         time.Time `json:"updatedAt"`
}

// TelegramConfigured reports whether both Telegram credentials are set.
func (s Settings) TelegramConfigured() bool {
	return s.TelegramBotToken != "" && s.TelegramChatID != ""
}

// Store reads and writes the settings row.
type Store struct {
	db *db.DB
}

// NewStore creates a settings store.
func NewStore(database *db.DB) *Store {
	return &Store{db: database}
}

// Get returns the settings, creating the row with defaults on first use.
func (s *Store) Get(ctx context.Context) (*Settings, error) {
	if _, err := s.db.ExecContext(ctx, `INSERT OR IGNORE INTO settings (id) VALUES (1)`); err != nil {
		return nil, fmt.Errorf("initialising settings: %w", err)
	}

	var st Settings
	err := s.db.QueryRowContext(ctx,
		`SELECT telegram_bot_token, telegram_chat_id, notify_on_new_ticket, notify_daily_report, ai_enabled,
		        company_name, support_phone, working_hours, updated_at
		 FROM settings WHERE id = 1`,
	).Scan(&st.TelegramBotToken, &st.TelegramChatID, &st.NotifyOnNewTicket, &st.NotifyDailyReport, &st.AIEnabled,
		&st.CompanyName, &st.SupportPhone, &st.WorkingHours, &st.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("reading settings: %w", err)
	}
	return &st, nil
}

// Save overwrites the settings row.
func (s *Store) Save(ctx context.Context, st Settings) (*Settings, error) {
	st.UpdatedAt = time.Now().UTC()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO settings (id, telegram_bot_token, telegram_chat_id, notify_on_new_ticket, notify_daily_report,
		                       ai_enabled, company_name, support_phone, working_hours, updated_at)
		 VALUES (1, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   telegram_bot_token = excluded.telegram_bot_token,
		   telegram_chat_id = excluded.telegram_chat_id,
		   notify_on_new_ticket = excluded.notify_on_new_ticket,
		   notify_daily_report = excluded.notify_daily_report,
		   ai_enabled = excluded.ai_enabled,
		   company_name = excluded.company_name,
		   support_phone = excluded.support_phone,
		   working_hours = excluded.working_hours,
		   updated_at = excluded.updated_at`,
		st.TelegramBotToken, st.TelegramChatID, st.NotifyOnNewTicket, st.NotifyDailyReport,
		st.AIEnabled, st.CompanyName, st.SupportPhone, st.WorkingHours, st.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("saving settings: %w", err)
	}
	return &st, nil
}

// AIEnabled reports the runtime AI switch. Read errors leave AI enabled.
func (s *Store) AIEnabled(ctx context.Context) bool {
	st, err := s.Get(ctx)
	if err != nil {
		return true
	}
	return st.AIEnabled
}
