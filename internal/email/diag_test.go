package email

import (
	"errors"
	"fmt"
	"io"
	"net/textproto"
	"testing"

	mail "github.com/go-mail/mail"
	"github.com/stretchr/testify/assert"
)

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o deadline" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestClassify(t *testing.T) {
	tests := []struct {
		err  error
		want Kind
	}{
		{timeoutErr{}, KindTransient},
		{errors.New("dial tcp: lookup smtp.example.com: no such host"), KindTransient},
		{errors.New("421 4.7.0 Try again later"), KindTransient},
		{errors.New("something odd happened"), KindTransient},
		{errors.New("535 5.7.8 Username and Password not accepted"), KindAuth},
		{errors.New("550 5.1.1 The email account that you tried to reach does not exist"), KindInvalidRecipient},
		{errors.New("553 mailbox name not allowed"), KindInvalidRecipient},
		{errors.New("550 5.7.1 Message rejected due to policy"), KindRejected},
		{errors.New("tls: failed to verify certificate: x509: certificate signed by unknown authority"), KindRejected},
		{&mail.SendError{Index: 0, Cause: errors.New("535 authentication failed")}, KindAuth},
		{fmt.Errorf("send: %w", timeoutErr{}), KindTransient},
		{fmt.Errorf("read reply: %w", io.EOF), KindTransient},
		{&textproto.Error{Code: 550, Msg: "5.1.1 user unknown"}, KindInvalidRecipient},
		{&textproto.Error{Code: 451, Msg: "4.3.0 mailbox 550 busy, try later"}, KindTransient},
		{&textproto.Error{Code: 554, Msg: "5.7.1 relay access denied"}, KindRejected},
		{&textproto.Error{Code: 535, Msg: "5.7.8 bad credentials"}, KindAuth},
		{&mail.SendError{Index: 0, Cause: &textproto.Error{Code: 452, Msg: "4.2.2 mailbox full"}}, KindTransient},
		{errors.New(`gomail: invalid address "x": mail: missing '@' or angle-addr`), KindInvalidRecipient},
		{errors.New("gomail: could not send email 1: 550 5.1.1 <u421@example.com> does not exist"), KindInvalidRecipient},
		{errors.New("queued as 4210 on host 550-relay"), KindTransient},
		{errors.New("geofence lookup failed"), KindTransient},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Classify(tt.err), tt.err.Error())
	}
}

func TestDeliveryError_Is(t *testing.T) {
	cause := errors.New("550 5.1.1 user unknown")
	err := error(&DeliveryError{Kind: KindInvalidRecipient, Attempts: 1, Err: cause})

	assert.ErrorIs(t, err, ErrInvalidRecipient)
	assert.ErrorIs(t, err, cause)
	assert.NotErrorIs(t, err, ErrTransient)
	assert.Contains(t, err.Error(), "invalid_recipient")
}
