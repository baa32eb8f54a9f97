package notify

import (
	"fmt"

	"github.com/blues/grants/internal/model"
)

// Render 生成通知邮件的标题和正文
func Render(n *model.NotificationModel) (Message, error) {
	if n.Recipient == nil {
		return Message{}, fmt.Errorf("notification %d has no recipient", n.Id)
	}
	if n.Grant == nil {
		return Message{}, fmt.Errorf("notification %d has no grant", n.Id)
	}

	msg := Message{To: n.Recipient.Email, ToName: n.Recipient.Handle}
	title := n.Grant.Title

	switch n.Kind {
	case model.NotificationNewGrant:
		msg.Subject = fmt.Sprintf("Your Grant is live: %s", title)
		msg.Text = fmt.Sprintf("Hi %s,\n\nYour Grant %q has been created and is ready to receive support.", n.Recipient.Handle, title)
	case model.NotificationGrantCancellation:
		msg.Subject = fmt.Sprintf("Your Grant has been cancelled: %s", title)
		msg.Text = fmt.Sprintf("Hi %s,\n\nYour Grant %q has been cancelled. Active subscriptions will no longer be processed.", n.Recipient.Handle, title)
	case model.NotificationSubscriptionTerminated:
		msg.Subject = fmt.Sprintf("Your subscription to %s has ended", title)
		msg.Text = fmt.Sprintf("Hi %s,\n\nThe Grant %q has been cancelled by its owner, so your subscription has ended.", n.Recipient.Handle, title)
	case model.NotificationNewSupporter:
		msg.Subject = fmt.Sprintf("You have a new supporter on %s", title)
		msg.Text = fmt.Sprintf("Hi %s,\n\nSomeone just started supporting %q.%s", n.Recipient.Handle, title, amountLine(n.Subscription))
	case model.NotificationThankYou:
		msg.Subject = fmt.Sprintf("Thank you for supporting %s", title)
		msg.Text = fmt.Sprintf("Hi %s,\n\nThank you for supporting %q.%s", n.Recipient.Handle, title, amountLine(n.Subscription))
	case model.NotificationSupportCancellation:
		msg.Subject = fmt.Sprintf("A supporter cancelled their subscription to %s", title)
		msg.Text = fmt.Sprintf("Hi %s,\n\nA supporter has cancelled their subscription to %q.", n.Recipient.Handle, title)
	default:
		return Message{}, fmt.Errorf("unknown notification kind %q", n.Kind)
	}

	return msg, nil
}

func amountLine(sub *model.SubscriptionModel) string {
	if sub == nil {
		return ""
	}
	return fmt.Sprintf("\n\nAmount: %s %s every %d %s.", sub.AmountPerPeriod.String(), sub.TokenSymbol, sub.Frequency, sub.FrequencyUnit)
}
