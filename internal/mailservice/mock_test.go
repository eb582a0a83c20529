package mailservice

import (
	"bytes"

	"github.com/go-mail/mail/v2"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/mock"

	"github.com/sushihentaime/blogcms/internal/common"
)

type MockTemplate struct {
	mock.Mock
}

func (m *MockTemplate) ParseTemplate(name string, data any) (*bytes.Buffer, *bytes.Buffer, *bytes.Buffer, error) {
	args := m.Called(name, data)
	return args.Get(0).(*bytes.Buffer), args.Get(1).(*bytes.Buffer), args.Get(2).(*bytes.Buffer), args.Error(3)
}

type MockDialer struct {
	mock.Mock
}

func (d *MockDialer) DialAndSend(m ...*mail.Message) error {
	args := d.Called(m)
	return args.Error(0)
}

type MockMailer struct {
	mock.Mock
}

func (m *MockMailer) send(recipient string, data any, templateFile string) error {
	args := m.Called(recipient, data, templateFile)
	return args.Error(0)
}

type MockMessageConsumer struct {
	mock.Mock
}

func (m *MockMessageConsumer) Consume(key common.BindingKey, exchange common.Exchange, queue common.Queue) (<-chan amqp.Delivery, error) {
	args := m.Called(key, exchange, queue)
	if ch := args.Get(0); ch != nil {
		return ch.(chan amqp.Delivery), args.Error(1)
	}
	return nil, args.Error(1)
}

// nopLogger satisfies MailLogger without output.
type nopLogger struct{}

func (nopLogger) Error(msg string, args ...any) {}
func (nopLogger) Info(msg string, args ...any)  {}
