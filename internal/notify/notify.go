// Package notify hands appointment notifications to an outbound transport.
// Delivery to the client's phone is the transport's concern.
package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Kind identifies the notification template.
type Kind string

const (
	// KindNewRequest alerts the owner to a booking made by a client.
	KindNewRequest Kind = "new_request"
	// KindConfirmation tells the client their appointment was confirmed.
	KindConfirmation Kind = "confirmation"
	// KindAdjustment tells the client their appointment was moved.
	KindAdjustment Kind = "adjustment"
)

// Notification describes one message to deliver.
type Notification struct {
	Kind          Kind      `json:"kind"`
	AppointmentID string    `json:"appointment_id"`
	ClientName    string    `json:"client_name"`
	ClientPhone   string    `json:"client_phone"`
	ProcedureName string    `json:"procedure_name"`
	Start         time.Time `json:"start"`
	// Recipient is the phone the message is addressed to: the owner for new
	// requests, the client otherwise.
	Recipient string `json:"recipient"`
}

// Notifier delivers notifications.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

var weekdayNames = [...]string{"domingo", "segunda", "terça", "quarta", "quinta", "sexta", "sábado"}

// Render produces the pt-BR message text for n.
func Render(n Notification) string {
	date := fmt.Sprintf("%s (%s)", n.Start.Format("02/01"), weekdayNames[n.Start.Weekday()])
	clock := n.Start.Format("15:04")

	var b strings.Builder
	switch n.Kind {
	case KindNewRequest:
		b.WriteString("*Nova solicitação de agendamento*\n\n")
		fmt.Fprintf(&b, "- Cliente: %s\n- Serviço: %s\n- Data: %s\n- Horário: %s", n.ClientName, n.ProcedureName, date, clock)
	case KindAdjustment:
		fmt.Fprintf(&b, "Olá *%s*! Precisamos ajustar o horário do seu atendimento de *%s*.\n\n", n.ClientName, n.ProcedureName)
		fmt.Fprintf(&b, "*Nova data:* %s\n*Novo horário:* %s\n\nPodemos confirmar?", date, clock)
	default:
		fmt.Fprintf(&b, "Olá *%s*! Seu atendimento de *%s* está confirmado.\n\n", n.ClientName, n.ProcedureName)
		fmt.Fprintf(&b, "*Data:* %s\n*Horário:* %s", date, clock)
	}
	return b.String()
}

// DigitsOnly strips every non-digit from phone.
func DigitsOnly(phone string) string {
	return strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, phone)
}

// NoopNotifier drops every notification.
type NoopNotifier struct{}

func NewNoopNotifier() *NoopNotifier {
	return &NoopNotifier{}
}

func (NoopNotifier) Notify(context.Context, Notification) error {
	return nil
}

// Multi delivers to every notifier and joins their errors.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, n Notification) error {
	var errs []error
	for _, notifier := range m {
		if err := notifier.Notify(ctx, n); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
