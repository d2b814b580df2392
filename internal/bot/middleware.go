package bot

import (
	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"
)

// LoggingMiddleware logs every incoming Telegram update at debug level.
func LoggingMiddleware() tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			evt := log.Debug()
			if sender := c.Sender(); sender != nil {
				evt = evt.Int64("user_id", sender.ID).Str("username", sender.Username)
			}
			if chat := c.Chat(); chat != nil {
				evt = evt.Int64("chat_id", chat.ID).Str("chat_type", string(chat.Type))
			}
			if cb := c.Callback(); cb != nil {
				evt = evt.Str("callback", cb.Data)
			}
			evt.Str("text", c.Text()).Msg("Received update")

			return next(c)
		}
	}
}

// RecoveryMiddleware recovers from panics in handlers.
func RecoveryMiddleware() tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) (err error) {
			defer func() {
				if r := recover(); r != nil {
					log.Error().
						Interface("panic", r).
						Msg("Recovered from panic in handler")
					err = c.Send("❌ Something went wrong, please try again.")
				}
			}()
			return next(c)
		}
	}
}
