package orchestrators

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/yuin/goldmark"
	goldmarkHTML "github.com/yuin/goldmark/renderer/html"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"leadtracker/internal/adapters/email"
	"leadtracker/internal/domain/contest"
	"leadtracker/internal/domain/lead"
	"leadtracker/internal/domain/outbox"
)

// mdRenderer turns notification bodies into HTML. Raw HTML in input is dropped.
var mdRenderer = goldmark.New(
	goldmark.WithRendererOptions(
		goldmarkHTML.WithHardWraps(),
	),
)

// LeadLister lists every lead in sheet order.
type LeadLister interface {
	List(ctx context.Context) ([]lead.Lead, error)
}

// ContestLister lists every stored contest.
type ContestLister interface {
	List(ctx context.Context) ([]contest.Contest, error)
}

// NotifySlabAchievementsDeps holds dependencies for NotifySlabAchievements.
type NotifySlabAchievementsDeps struct {
	LeadStore    LeadLister
	ContestStore ContestLister
	Sender       email.Sender
	Recipients   []string
	Printer      *message.Printer // formats incentive amounts for the recipients' locale
	Currency     string
	Now          func() time.Time
	Location     *time.Location

	// Outbox queues notifications the sender rejected. Nil surfaces the
	// send error instead.
	Outbox      OutboxSaver
	GenerateID  func() string
	MaxAttempts int
}

// OutboxSaver persists queued notifications.
type OutboxSaver interface {
	Save(ctx context.Context, e outbox.Entry) error
}

// SlabAchievement is one slab target that a lead change has just reached.
type SlabAchievement struct {
	Contest contest.Contest
	Slab    contest.Slab
	Period  string // "daily" or "weekly"
	Count   int
	Target  int
}

// FindSlabAchievements returns the slab targets the change has just met:
// today's Hot Lead count equal to a daily target, or the contest total equal
// to a weekly target. Counts are exact, so it must see the store exactly as
// the write left it.
// PRE: called with the write lock that produced change still held
// POST: Returns none when no recipients are set, the lead is not a new Hot
// Lead, or no active contest covers it
func FindSlabAchievements(ctx context.Context, change LeadChange, deps NotifySlabAchievementsDeps) ([]SlabAchievement, error) {
	if len(deps.Recipients) == 0 || !change.Lead.IsHotLead() || change.PreviousStatus == lead.StatusHotLead {
		return nil, nil
	}

	today := deps.Now().In(deps.Location).Format(lead.DateLayout)
	leadDate := change.Lead.Date(deps.Location)

	contests, err := deps.ContestStore.List(ctx)
	if err != nil {
		return nil, err
	}
	leads, err := deps.LeadStore.List(ctx)
	if err != nil {
		return nil, err
	}

	var reached []SlabAchievement
	for _, c := range contests {
		if !c.IsActive(today) || leadDate < c.StartDate || leadDate > c.EndDate {
			continue
		}
		agg, err := contest.Tally(c.StartDate, c.EndDate, leads, deps.Location)
		if err != nil {
			slog.Warn("contest_tally_failed", "contest_id", c.ID, "error", err)
			continue
		}
		todayCount := agg.CountOn(today)
		for _, s := range c.Slabs {
			if leadDate == today && todayCount == s.DailyTarget {
				reached = append(reached, SlabAchievement{Contest: c, Slab: s, Period: "daily", Count: todayCount, Target: s.DailyTarget})
			}
			if agg.WeeklyTotal == s.WeeklyTarget {
				reached = append(reached, SlabAchievement{Contest: c, Slab: s, Period: "weekly", Count: agg.WeeklyTotal, Target: s.WeeklyTarget})
			}
		}
	}
	return reached, nil
}

// ExecuteNotifySlabAchievements emails the recipients once for each
// achievement found by FindSlabAchievements. Sending happens outside the
// write lock.
// PRE: reached came from FindSlabAchievements for the write that produced l
// POST: Every achievement is sent or queued in the outbox; the send error is
// returned only when no outbox is configured
func ExecuteNotifySlabAchievements(ctx context.Context, l lead.Lead, reached []SlabAchievement, deps NotifySlabAchievementsDeps) error {
	if len(reached) == 0 || len(deps.Recipients) == 0 {
		return nil
	}

	reqs := make([]email.SendRequest, 0, len(reached))
	for _, a := range reached {
		html, err := renderAchievement(a, l, deps)
		if err != nil {
			return err
		}
		reqs = append(reqs, email.SendRequest{
			To:      deps.Recipients,
			Subject: fmt.Sprintf("%s: %s %s target reached", a.Contest.Name, a.Slab.Name, a.Period),
			HTML:    html,
		})
	}
	if _, err := deps.Sender.SendBatch(ctx, reqs); err != nil {
		err = fmt.Errorf("send slab notifications: %w", err)
		if deps.Outbox == nil {
			return err
		}
		if qerr := queueNotifications(ctx, reqs, deps); qerr != nil {
			return errors.Join(err, qerr)
		}
		slog.Warn("slab_notifications_queued", "count", len(reqs), "loan_code", l.LoanCode, "error", err)
		return nil
	}

	slog.Info("contest_event", "event", "slab_achievements_notified", "count", len(reached), "loan_code", l.LoanCode)
	return nil
}

// queueNotifications stores reqs for the outbox worker.
func queueNotifications(ctx context.Context, reqs []email.SendRequest, deps NotifySlabAchievementsDeps) error {
	now := deps.Now()
	for _, req := range reqs {
		e, err := outbox.New(deps.GenerateID(), req.To, req.Subject, req.HTML, deps.MaxAttempts, now)
		if err != nil {
			return err
		}
		if err := deps.Outbox.Save(ctx, e); err != nil {
			return fmt.Errorf("queue notification: %w", err)
		}
	}
	return nil
}

// renderAchievement builds the HTML body for one achievement.
func renderAchievement(a SlabAchievement, l lead.Lead, deps NotifySlabAchievementsDeps) (string, error) {
	p := deps.Printer
	if p == nil {
		p = message.NewPrinter(language.English)
	}
	who := l.Name
	if who == "" {
		who = "A lead"
	}
	md := p.Sprintf("**%s** reached the %s target of **%s** in *%s*.\n\n"+
		"- Hot Leads: %d of %d\n"+
		"- Incentive: %s%d\n"+
		"- Contest dates: %s to %s\n"+
		"- Triggered by loan code `%s`\n",
		who, a.Period, a.Slab.Name, a.Contest.Name,
		a.Count, a.Target,
		deps.Currency, a.Slab.Incentive,
		a.Contest.StartDate, a.Contest.EndDate,
		l.LoanCode)

	var buf bytes.Buffer
	if err := mdRenderer.Convert([]byte(md), &buf); err != nil {
		return "", fmt.Errorf("render notification: %w", err)
	}
	return buf.String(), nil
}
