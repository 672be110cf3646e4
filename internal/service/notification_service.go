package service

import (
	"context"
	"errors"
	"fmt"
	"html"
	"log/slog"
	"time"

	"github.com/iliyamo/hrpass/internal/metrics"
	"github.com/iliyamo/hrpass/internal/notify"
	"github.com/iliyamo/hrpass/internal/queue"
	"github.com/iliyamo/hrpass/internal/utils"
)

// NotificationService sends interview invitations by email (with an ICS
// attachment) and WhatsApp.  It runs outside any transaction; a failure
// never changes booking state.
type NotificationService struct {
	mailer    notify.Mailer
	messenger notify.Messenger
	booking   *BookingService
	log       *slog.Logger
}

// NewNotificationService wires a NotificationService.  A nil messenger
// disables WhatsApp.
func NewNotificationService(mailer notify.Mailer, messenger notify.Messenger, booking *BookingService, log *slog.Logger) *NotificationService {
	return &NotificationService{mailer: mailer, messenger: messenger, booking: booking, log: log}
}

// HandleEvent is the queue consumer callback.
func (n *NotificationService) HandleEvent(ctx context.Context, ev queue.InterviewEvent) error {
	err := n.send(ctx, ev)
	if err != nil {
		n.log.Warn("interview notification failed", "interview_id", ev.InterviewID, "type", ev.Type, "error", err)
	}
	return err
}

// NotifyInterview sends the invitation for an interview synchronously.
// Provider failures are returned wrapped in notify.ErrProvider.
func (n *NotificationService) NotifyInterview(ctx context.Context, actor, interviewID string) error {
	ctx, span := tracer.Start(ctx, "NotificationService.NotifyInterview")
	defer span.End()

	iv, err := n.booking.GetInterview(ctx, interviewID)
	if err != nil {
		return err
	}
	ev, err := n.booking.InterviewEvent(ctx, queue.InterviewBookedQueue, actor, iv)
	if err != nil {
		return err
	}
	return n.send(ctx, ev)
}

// CalendarFor renders the ICS document of an interview.
func (n *NotificationService) CalendarFor(ctx context.Context, interviewID string) (string, error) {
	iv, err := n.booking.GetInterview(ctx, interviewID)
	if err != nil {
		return "", err
	}
	ev, err := n.booking.InterviewEvent(ctx, queue.InterviewBookedQueue, "", iv)
	if err != nil {
		return "", err
	}
	return calendarFor(ev), nil
}

func calendarFor(ev queue.InterviewEvent) string {
	start, _ := time.Parse(time.RFC3339, ev.SlotTime)
	return utils.MakeICS(
		"Interview: "+firstNonEmpty(ev.RoleTitle, "Interview"),
		fmt.Sprintf("Interview with %s (%s)", ev.CandidateName, ev.Mode),
		start, ev.DurationMinutes, ev.Location,
	)
}

func (n *NotificationService) send(ctx context.Context, ev queue.InterviewEvent) error {
	cancelled := ev.Type == queue.InterviewCancelledQueue
	var errs []error

	if ev.CandidateEmail != "" {
		m := notify.Email{To: ev.CandidateEmail}
		if cancelled {
			m.Subject = "Interview cancelled: " + firstNonEmpty(ev.RoleTitle, "Interview")
			m.HTML = fmt.Sprintf("<p>Hi %s,</p><p>Your interview on %s has been cancelled.</p>",
				html.EscapeString(ev.CandidateName), html.EscapeString(ev.SlotTime))
		} else {
			m.Subject = "Interview scheduled: " + firstNonEmpty(ev.RoleTitle, "Interview")
			m.HTML = fmt.Sprintf("<p>Hi %s,</p><p>Your interview is scheduled for %s (%d minutes, %s).</p><p>%s</p>",
				html.EscapeString(ev.CandidateName), html.EscapeString(ev.SlotTime), ev.DurationMinutes,
				html.EscapeString(ev.Mode), html.EscapeString(ev.Location))
			m.Attachments = []notify.Attachment{{
				Filename:    "interview.ics",
				Content:     []byte(calendarFor(ev)),
				ContentType: "text/calendar",
			}}
		}
		err := n.mailer.SendEmail(ctx, m)
		metrics.ObserveNotification("email", notificationResult(err))
		if err != nil {
			errs = append(errs, err)
		}
	}

	if ev.CandidatePhone != "" && n.messenger != nil {
		body := fmt.Sprintf("Interview scheduled for %s (%s). %s", ev.SlotTime, ev.Mode, ev.Location)
		if cancelled {
			body = fmt.Sprintf("Your interview on %s has been cancelled.", ev.SlotTime)
		}
		err := n.messenger.SendWhatsApp(ctx, ev.CandidatePhone, body)
		metrics.ObserveNotification("whatsapp", notificationResult(err))
		if err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func notificationResult(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, notify.ErrNotConfigured):
		return "not_configured"
	}
	return "error"
}
