package mailservice

import (
	"bytes"
	"context"
	"sync"
	"time"

	"github.com/go-mail/mail/v2"

	"github.com/sushihentaime/blogcms/internal/common"
)

const (
	welcomeTemplate = "welcome_email.tmpl"

	defaultMaxRetries = 5
	defaultBaseDelay  = 500 * time.Millisecond
)

type MailService struct {
	mb         common.MessageConsumer
	m          Mailer
	logger     MailLogger
	ctx        context.Context
	cancel     context.CancelFunc
	maxRetries int
	baseDelay  time.Duration
	sleep      func(time.Duration)
}

type MailLogger interface {
	Error(msg string, args ...any)
	Info(msg string, args ...any)
}

type Mail struct {
	mu     sync.Mutex
	dialer Dialer
	parser TemplateParser
	sender string
}

type Mailer interface {
	send(recipient string, data any, templateFile string) error
}

type Template struct{}

type Dialer interface {
	DialAndSend(m ...*mail.Message) error
}

type TemplateParser interface {
	ParseTemplate(name string, data any) (*bytes.Buffer, *bytes.Buffer, *bytes.Buffer, error)
}

// registeredMessage mirrors the body userservice publishes on user.registered.
type registeredMessage struct {
	UserID   int    `json:"user_id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

type welcomeData struct {
	Username string
}
