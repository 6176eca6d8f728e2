package email

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"io"
	"net"
	"net/textproto"
	"regexp"
	"strconv"
	"strings"

	mail "github.com/go-mail/mail"
)

// Kind is the retry class of a delivery error.
type Kind int

const (
	// KindTransient covers timeouts, dial and network failures, 4xx replies
	// and anything unrecognised. Retried.
	KindTransient Kind = iota
	// KindAuth is a credential rejection (535, 5.7.8). Not retried.
	KindAuth
	// KindInvalidRecipient is a permanent mailbox failure (550, 553, 5.1.1)
	// or an address that does not parse.
	KindInvalidRecipient
	// KindRejected is a policy or TLS rejection (5.7.1, certificate errors)
	// and any other permanent 5xx reply.
	KindRejected
)

func (k Kind) String() string {
	switch k {
	case KindAuth:
		return "auth"
	case KindInvalidRecipient:
		return "invalid_recipient"
	case KindRejected:
		return "rejected"
	default:
		return "transient"
	}
}

// Retryable reports whether another attempt could succeed.
func (k Kind) Retryable() bool { return k == KindTransient }

func (k Kind) sentinel() error {
	switch k {
	case KindAuth:
		return ErrAuthentication
	case KindInvalidRecipient:
		return ErrInvalidRecipient
	case KindRejected:
		return ErrRejected
	default:
		return ErrTransient
	}
}

// replyCode finds an SMTP reply code at the start of the text or right after
// a "prefix: " wrapper, e.g. "gomail: could not send email 1: 550 5.1.1 ...".
var replyCode = regexp.MustCompile(`(?:^|: )([2-5][0-9][0-9])[ -]`)

// Classify maps an SMTP or network error to a Kind. Reply codes are read from
// the server reply when one is available; phrase matching is the fallback for
// servers and libraries that only hand back text.
func Classify(err error) Kind {
	if err == nil {
		return KindTransient
	}

	var se *mail.SendError
	if errors.As(err, &se) && se.Cause != nil {
		err = se.Cause
	}

	if isCertificateError(err) {
		return KindRejected
	}

	var tpe *textproto.Error
	if errors.As(err, &tpe) {
		return classifyReply(tpe.Code, tpe.Msg)
	}

	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return KindTransient
	}
	var oe *net.OpError
	if errors.As(err, &oe) || errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return KindTransient
	}

	s := strings.ToLower(err.Error())

	if m := replyCode.FindStringSubmatchIndex(s); m != nil {
		code, _ := strconv.Atoi(s[m[2]:m[3]])
		return classifyReply(code, s[m[1]:])
	}

	switch {
	case strings.Contains(s, "x509:"),
		strings.Contains(s, "tls") && (strings.Contains(s, "handshake") || strings.Contains(s, "certificate")):
		return KindRejected

	case strings.Contains(s, "invalid address"),
		strings.Contains(s, "mail: no address"),
		strings.Contains(s, "missing '@'"):
		return KindInvalidRecipient

	case strings.Contains(s, "timeout"),
		strings.Contains(s, "connection refused"),
		strings.Contains(s, "connection reset"),
		strings.Contains(s, "no such host"),
		strings.Contains(s, "dial tcp"),
		strings.HasSuffix(s, ": eof"), s == "eof":
		return KindTransient

	case strings.Contains(s, "username and password not accepted"),
		strings.Contains(s, "authentication failed"):
		return KindAuth
	}

	return KindTransient
}

// classifyReply maps a reply code and its text. The enhanced status code
// (RFC 3463) in the text takes precedence over the basic code.
func classifyReply(code int, msg string) Kind {
	msg = strings.ToLower(strings.TrimSpace(msg))

	switch {
	case strings.HasPrefix(msg, "5.7.8"), code == 535, code == 530:
		return KindAuth
	case strings.HasPrefix(msg, "5.7."):
		return KindRejected
	case strings.HasPrefix(msg, "5.1."), code == 550, code == 551, code == 553:
		return KindInvalidRecipient
	case code >= 500:
		return KindRejected
	}
	return KindTransient
}

func isCertificateError(err error) bool {
	var (
		cve *tls.CertificateVerificationError
		uae x509.UnknownAuthorityError
		he  x509.HostnameError
		cie x509.CertificateInvalidError
	)
	return errors.As(err, &cve) || errors.As(err, &uae) || errors.As(err, &he) || errors.As(err, &cie)
}
