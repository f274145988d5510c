package filter

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"time"

	"github.com/emersion/go-smtp"
	"github.com/mikey/llm-mail-triage/internal/core"
	"github.com/mikey/llm-mail-triage/internal/metrics"
	"github.com/mikey/llm-mail-triage/internal/whitelist"
	"go.uber.org/zap"
)

const frontendSMTP = "smtp"

// SMTPFilter is an MTA content filter: it receives mail over SMTP, annotates
// it with triage headers and re-injects it into the MTA
type SMTPFilter struct {
	analyzer       core.Analyzer
	skip           *whitelist.Checker
	logger         *zap.Logger
	listenAddr     string
	reinjectAddr   string
	headerPrefix   string
	analyzeTimeout time.Duration
	server         *smtp.Server

	// deliver hands the annotated message back to the MTA
	deliver func(sender string, recipients []string, data []byte) error
}

// NewSMTPFilter creates a new SMTP content filter
func NewSMTPFilter(
	analyzer core.Analyzer,
	skip *whitelist.Checker,
	logger *zap.Logger,
	listenAddr string,
	reinjectAddr string,
	headerPrefix string,
	analyzeTimeout time.Duration,
) *SMTPFilter {
	f := &SMTPFilter{
		analyzer:       analyzer,
		skip:           skip,
		logger:         logger,
		listenAddr:     listenAddr,
		reinjectAddr:   reinjectAddr,
		headerPrefix:   headerPrefix,
		analyzeTimeout: analyzeTimeout,
	}
	f.deliver = f.sendToMTA
	return f
}

// Start starts accepting mail in the background
func (f *SMTPFilter) Start() error {
	f.server = smtp.NewServer(&smtpBackend{filter: f})
	f.server.Addr = f.listenAddr
	f.server.Domain = "localhost"
	f.server.ReadTimeout = 30 * time.Second
	f.server.WriteTimeout = 30 * time.Second
	f.server.MaxMessageBytes = 30 * 1024 * 1024
	f.server.MaxRecipients = 50

	f.logger.Info("SMTP triage filter starting",
		zap.String("address", f.listenAddr),
		zap.String("reinject_address", f.reinjectAddr))

	go func() {
		if err := f.server.ListenAndServe(); err != nil && !errors.Is(err, smtp.ErrServerClosed) {
			f.logger.Error("SMTP server error", zap.Error(err))
		}
	}()

	return nil
}

// Stop stops the SMTP server
func (f *SMTPFilter) Stop() error {
	if f.server != nil {
		return f.server.Close()
	}
	return nil
}

// ProcessEmail analyzes an email with the filter's timeout
func (f *SMTPFilter) ProcessEmail(ctx context.Context, email *core.Email) (*core.AnalysisResult, error) {
	if f.analyzeTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.analyzeTimeout)
		defer cancel()
	}
	return f.analyzer.Analyze(ctx, email)
}

// handle annotates and relays one message received from the MTA
func (f *SMTPFilter) handle(sender string, recipients []string, raw []byte) error {
	if f.skip.IsWhitelisted(sender) {
		metrics.IncrementEmailProcessed(frontendSMTP, "skipped")
		return f.relay(sender, recipients, raw)
	}

	email, err := ParseMessage(bytes.NewReader(raw))
	if err != nil {
		// unparseable mail is relayed untouched rather than bounced
		f.logger.Warn("Failed to parse message, relaying unchanged",
			zap.String("sender", sender),
			zap.Error(err))
		metrics.IncrementEmailProcessed(frontendSMTP, "unparsed")
		return f.relay(sender, recipients, raw)
	}
	if email.From == "" {
		email.From = sender
	}
	email.To = recipients

	var headers []Header
	result, err := f.ProcessEmail(context.Background(), email)
	if err != nil {
		f.logger.Error("Failed to analyze email",
			zap.String("sender", sender),
			zap.String("message_id", email.ID),
			zap.Error(err))
		headers = []Header{{Name: f.headerPrefix + "Error", Value: headerValue(err.Error())}}
		metrics.IncrementEmailProcessed(frontendSMTP, "error")
	} else {
		headers = TriageHeaders(f.headerPrefix, result)
		metrics.IncrementEmailProcessed(frontendSMTP, "analyzed")
		f.logger.Info("Triaged email",
			zap.String("sender", sender),
			zap.String("message_id", email.ID),
			zap.String("sentiment", string(result.Sentiment)),
			zap.Float64("importance", result.ImportanceScore),
			zap.Strings("categories", result.Categories))
	}

	return f.relay(sender, recipients, prependHeaders(headers, raw))
}

func (f *SMTPFilter) relay(sender string, recipients []string, data []byte) error {
	if err := f.deliver(sender, recipients, data); err != nil {
		f.logger.Error("Failed to re-inject message",
			zap.String("sender", sender),
			zap.String("reinject_address", f.reinjectAddr),
			zap.Error(err))
		// temporary failure so the MTA keeps the message queued
		return &smtp.SMTPError{
			Code:         451,
			EnhancedCode: smtp.EnhancedCode{4, 3, 0},
			Message:      "Temporary failure re-injecting message",
		}
	}
	return nil
}

// sendToMTA re-injects the message on the MTA's return port
func (f *SMTPFilter) sendToMTA(sender string, recipients []string, data []byte) error {
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "localhost"
	}

	conn, err := net.DialTimeout("tcp", f.reinjectAddr, 10*time.Second)
	if err != nil {
		return fmt.Errorf("failed to connect to MTA: %w", err)
	}
	if err := conn.SetDeadline(time.Now().Add(30 * time.Second)); err != nil {
		conn.Close()
		return fmt.Errorf("failed to set connection deadline: %w", err)
	}

	c := smtp.NewClient(conn)
	defer c.Close()

	if err := c.Hello(hostname); err != nil {
		return fmt.Errorf("EHLO failed: %w", err)
	}
	if err := c.Mail(sender, nil); err != nil {
		return fmt.Errorf("MAIL FROM failed: %w", err)
	}

	accepted := 0
	for _, recipient := range recipients {
		if err := c.Rcpt(recipient, nil); err != nil {
			f.logger.Warn("RCPT TO failed for recipient",
				zap.String("recipient", recipient),
				zap.Error(err))
			continue
		}
		accepted++
	}
	if accepted == 0 {
		return fmt.Errorf("all recipients were rejected")
	}

	wc, err := c.Data()
	if err != nil {
		return fmt.Errorf("DATA command failed: %w", err)
	}
	if _, err := wc.Write(data); err != nil {
		wc.Close()
		return fmt.Errorf("failed to send message data: %w", err)
	}
	if err := wc.Close(); err != nil {
		return fmt.Errorf("failed to close data writer: %w", err)
	}

	if err := c.Quit(); err != nil {
		f.logger.Warn("QUIT command failed", zap.Error(err))
	}
	return nil
}

type smtpBackend struct {
	filter *SMTPFilter
}

func (b *smtpBackend) NewSession(_ *smtp.Conn) (smtp.Session, error) {
	return &smtpSession{filter: b.filter}, nil
}

type smtpSession struct {
	filter     *SMTPFilter
	sender     string
	recipients []string
}

func (s *smtpSession) Reset() {
	s.sender = ""
	s.recipients = nil
}

func (s *smtpSession) Mail(from string, _ *smtp.MailOptions) error {
	s.sender = from
	return nil
}

func (s *smtpSession) Rcpt(to string, _ *smtp.RcptOptions) error {
	s.recipients = append(s.recipients, to)
	return nil
}

func (s *smtpSession) Data(r io.Reader) error {
	raw, err := io.ReadAll(r)
	if err != nil {
		s.filter.logger.Error("Failed to read message data", zap.Error(err))
		return err
	}
	return s.filter.handle(s.sender, s.recipients, raw)
}

func (s *smtpSession) Logout() error {
	return nil
}
