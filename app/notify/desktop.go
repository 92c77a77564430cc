package notify

import (
	"context"
	"fmt"

	"github.com/gen2brain/beeep"
)

var _ Notifier = (*Desktop)(nil)

// Desktop shows notifications through the platform notification daemon.
type Desktop struct {
	icon string
	send func(title, message string, icon any) error
}

func NewDesktop(appName, icon string) *Desktop {
	if appName != "" {
		beeep.AppName = appName
	}
	return &Desktop{
		icon: icon,
		send: beeep.Notify,
	}
}

func (d *Desktop) Name() string {
	return "desktop"
}

func (d *Desktop) Notify(ctx context.Context, n Notification) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := d.send(n.Site, HTMLBody(n), d.icon); err != nil {
		return fmt.Errorf("failed to show desktop notification: %w", err)
	}
	return nil
}
