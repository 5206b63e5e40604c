// Package notify delivers "bounty contributed" notices to report owners.
package notify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	"bountyledger/internal/domain"
)

const (
	contributedKey     = "%s contributed %v to the bounty on %q"
	contributedNoTitle = "%s contributed %v to the bounty on your report"
	anonymous          = "Someone"
)

var supported = language.NewMatcher([]language.Tag{
	language.English,
	language.Indonesian,
})

func init() {
	_ = message.SetString(language.Indonesian, contributedKey, "%s menyumbang %v untuk bounty pada %q")
	_ = message.SetString(language.Indonesian, contributedNoTitle, "%s menyumbang %v untuk bounty pada laporan Anda")
	_ = message.SetString(language.Indonesian, anonymous, "Seseorang")
}

// Dispatcher stores a notification for the report owner. With no repository it
// only logs the notice.
type Dispatcher struct {
	repo    domain.NotificationRepository
	printer *message.Printer
	logger  zerolog.Logger
	now     func() time.Time
}

// NewDispatcher builds a dispatcher rendering messages in locale, falling back
// to English for unsupported locales.
func NewDispatcher(repo domain.NotificationRepository, locale string, logger zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		repo:    repo,
		printer: message.NewPrinter(matchLocale(locale)),
		logger:  logger,
		now:     time.Now,
	}
}

func matchLocale(locale string) language.Tag {
	tag, err := language.Parse(strings.TrimSpace(locale))
	if err != nil {
		return language.English
	}
	_, idx, conf := supported.Match(tag)
	if conf == language.No {
		return language.English
	}
	return []language.Tag{language.English, language.Indonesian}[idx]
}

// Message renders the notice text for a contribution.
func (d *Dispatcher) Message(report domain.Report, c domain.Contribution) string {
	name := strings.TrimSpace(c.ContributorName)
	if name == "" {
		name = d.printer.Sprintf(anonymous)
	}
	amount := d.formatAmount(c.Amount)
	if title := strings.TrimSpace(report.Title); title != "" {
		return d.printer.Sprintf(contributedKey, name, amount, title)
	}
	return d.printer.Sprintf(contributedNoTitle, name, amount)
}

// formatAmount groups the integer part in the printer's locale and appends the
// fraction digits of the decimal as stored, so no value passes through float64.
func (d *Dispatcher) formatAmount(amount decimal.Decimal) string {
	whole := amount.Truncate(0)
	if !whole.Equal(decimal.NewFromInt(whole.IntPart())) {
		return amount.String()
	}
	out := d.printer.Sprint(number.Decimal(whole.IntPart()))
	if amount.IsNegative() && whole.IsZero() {
		out = "-" + out
	}
	frac := strings.TrimPrefix(amount.Sub(whole).Abs().String(), "0.")
	if frac = strings.TrimRight(frac, "0"); frac != "" {
		out += d.decimalSep() + frac
	}
	return out
}

func (d *Dispatcher) decimalSep() string {
	return strings.TrimSuffix(strings.TrimPrefix(d.printer.Sprint(number.Decimal(1.5)), "1"), "5")
}

// BountyContributed implements ledger.Notifier.
func (d *Dispatcher) BountyContributed(ctx context.Context, report domain.Report, c domain.Contribution) error {
	n := &domain.Notification{
		ID:          uuid.NewString(),
		RecipientID: report.OwnerID,
		Kind:        domain.NotificationBountyContributed,
		ReportID:    report.ID,
		Message:     d.Message(report, c),
		CreatedAt:   d.now().UTC(),
	}
	d.logger.Info().
		Str("recipient_id", n.RecipientID).
		Str("report_id", n.ReportID).
		Str("contribution_id", c.ID).
		Msg("notify: bounty contributed")
	if d.repo == nil {
		return nil
	}
	if err := d.repo.Create(ctx, n); err != nil {
		return fmt.Errorf("store notification: %w", err)
	}
	return nil
}
