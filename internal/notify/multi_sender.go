package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/vantagehq/vantage/internal/engine"
	"github.com/vantagehq/vantage/pkg/models"
)

// MultiSender fans a dispatch out to several senders and folds their
// outcomes into one: any failing sender fails the batch.
type MultiSender struct {
	senders []engine.Dispatcher
}

// NewMultiSender builds a MultiSender, skipping nil senders.
func NewMultiSender(senders ...engine.Dispatcher) MultiSender {
	filtered := make([]engine.Dispatcher, 0, len(senders))
	for _, sender := range senders {
		if sender == nil {
			continue
		}
		filtered = append(filtered, sender)
	}
	return MultiSender{senders: filtered}
}

// Send dispatches through every configured sender.
func (m MultiSender) Send(ctx context.Context, alert *models.Alert, recipients []string) error {
	if len(m.senders) == 0 {
		return fmt.Errorf("no senders configured")
	}
	var errs []string
	for _, sender := range m.senders {
		if err := sender.Send(ctx, alert, recipients); err != nil {
			errs = append(errs, err.Error())
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("notification delivery failed: %s", strings.Join(errs, "; "))
	}
	return nil
}
