package mailservice

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func TestSendEmail(t *testing.T) {
	mockParser := new(MockTemplate)
	mockDialer := new(MockDialer)

	mailer := Mail{
		dialer: mockDialer,
		parser: mockParser,
		sender: "sender@example.com",
	}

	subject := bytes.NewBufferString("Test Subject")
	plainBody := bytes.NewBufferString("Test Plain Body")
	htmlBody := bytes.NewBufferString("Test HTML Body")
	mockParser.On("ParseTemplate", welcomeTemplate, mock.Anything).Return(subject, plainBody, htmlBody, nil)

	mockDialer.On("DialAndSend", mock.AnythingOfType("[]*mail.Message")).Return(nil)

	err := mailer.send("test@example.com", welcomeData{Username: "writer"}, welcomeTemplate)
	assert.NoError(t, err)

	mockParser.AssertExpectations(t)
	mockDialer.AssertExpectations(t)
}

func TestSendEmailTemplateError(t *testing.T) {
	mockParser := new(MockTemplate)
	mockDialer := new(MockDialer)

	mailer := Mail{
		dialer: mockDialer,
		parser: mockParser,
		sender: "sender@example.com",
	}

	var nilBuf *bytes.Buffer
	mockParser.On("ParseTemplate", "missing.tmpl", mock.Anything).Return(nilBuf, nilBuf, nilBuf, errors.New("no such template"))

	err := mailer.send("test@example.com", nil, "missing.tmpl")
	assert.Error(t, err)

	mockDialer.AssertNotCalled(t, "DialAndSend", mock.Anything)
}
