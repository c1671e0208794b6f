package notification

// Channel is a delivery medium.
type Channel string

const (
	ChannelEmail   Channel = "email"
	ChannelPush    Channel = "push"
	ChannelSMS     Channel = "sms"
	ChannelWebhook Channel = "webhook"
	ChannelInApp   Channel = "in_app"
)

// Channels returns all supported channels in a stable order.
func Channels() []Channel {
	return []Channel{ChannelEmail, ChannelPush, ChannelSMS, ChannelWebhook, ChannelInApp}
}

// Valid reports whether c is a known channel.
func (c Channel) Valid() bool {
	switch c {
	case ChannelEmail, ChannelPush, ChannelSMS, ChannelWebhook, ChannelInApp:
		return true
	default:
		return false
	}
}

func (c Channel) String() string {
	return string(c)
}
