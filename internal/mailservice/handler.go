package mailservice

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"golang.org/x/exp/rand"

	"github.com/sushihentaime/blogcms/internal/common"
)

var (
	errNoRecipient = errors.New("registration has no email address")
)

func NewMailService(mb common.MessageConsumer, host, username, password, sender string, port int, logger MailLogger) *MailService {
	ctx, cancel := context.WithCancel(context.Background())
	return &MailService{
		mb:         mb,
		m:          NewMailer(host, port, username, password, sender, NewTemplate()),
		logger:     logger,
		ctx:        ctx,
		cancel:     cancel,
		maxRetries: defaultMaxRetries,
		baseDelay:  defaultBaseDelay,
		sleep:      time.Sleep,
	}
}

// SendWelcomeEmail starts consuming user.registered events and mails every new user that left an
// address. It returns once the consumer is registered; delivery runs until Close.
func (s *MailService) SendWelcomeEmail() error {
	msgs, err := s.mb.Consume(common.UserRegisteredKey, common.UserExchange, common.UserRegisteredQueue)
	if err != nil {
		s.logger.Error("could not consume message", slog.String("error", err.Error()))
		return err
	}

	go func() {
		for {
			select {
			case msg, ok := <-msgs:
				if !ok {
					return
				}

				s.handle(msg)

			case <-s.ctx.Done():
				s.logger.Info("stopping SendWelcomeEmail due to context cancellation")
				return
			}
		}
	}()

	return nil
}

func (s *MailService) handle(msg amqp.Delivery) {
	err := s.deliver(msg.Body)
	switch {
	case err == nil:
	case errors.Is(err, errNoRecipient):
		s.logger.Info("skipping welcome email", slog.String("reason", err.Error()))
	default:
		s.logger.Error("could not send welcome email", slog.String("error", err.Error()))
	}

	// Failed messages are dropped rather than requeued; the account works without the email.
	_ = msg.Ack(false)
}

// deliver decodes one registration event and sends the welcome email, retrying with
// exponential backoff and full jitter.
func (s *MailService) deliver(body []byte) error {
	var data registeredMessage

	err := json.Unmarshal(body, &data)
	if err != nil {
		return fmt.Errorf("could not unmarshal message: %w", err)
	}

	if data.Email == "" {
		return errNoRecipient
	}

	payload := welcomeData{Username: data.Username}

	for attempt := 0; attempt < s.maxRetries; attempt++ {
		err = s.m.send(data.Email, payload, welcomeTemplate)
		if err == nil {
			s.logger.Info("welcome email sent", slog.String("email", data.Email))
			return nil
		}

		delay := time.Duration(rand.Int63n(int64(s.baseDelay) << uint(attempt)))
		s.logger.Info("delaying welcome email", slog.String("email", data.Email), slog.Int("attempt", attempt), slog.Duration("delay", delay))
		s.sleep(delay)
	}

	return fmt.Errorf("giving up on %s after %d attempts: %w", data.Email, s.maxRetries, err)
}

func (s *MailService) Close() {
	s.cancel()
}
