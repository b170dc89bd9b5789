package imap

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strconv"

	imapv2 "github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"

	"github.com/dhcgn/vmsg2csv/model"
)

// session is a logged-in IMAP connection with the target folder in place.
type session struct {
	ctx       context.Context
	client    *imapclient.Client
	folder    string
	flags     []imapv2.Flag
	logger    *slog.Logger
	stopClose func() bool
}

func dialSession(ctx context.Context, opts Options, logger *slog.Logger) (appender, error) {
	address := net.JoinHostPort(opts.Host, strconv.Itoa(opts.Port))
	options := &imapclient.Options{}

	if opts.UseTLS {
		options.TLSConfig = &tls.Config{
			ServerName:         opts.Host,
			InsecureSkipVerify: opts.InsecureSkipVerify,
		}
	}

	var (
		client *imapclient.Client
		err    error
	)

	if opts.UseTLS {
		client, err = imapclient.DialTLS(address, options)
	} else {
		client, err = imapclient.DialInsecure(address, options)
	}
	if err != nil {
		return nil, fmt.Errorf("dial imap %s: %w", address, err)
	}

	if err := client.Login(opts.Username, opts.Password).Wait(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("imap login failed: %w", err)
	}

	s := &session{
		ctx:    ctx,
		client: client,
		folder: opts.TargetFolder,
		logger: logger,
	}
	if opts.MarkSeen {
		s.flags = []imapv2.Flag{imapv2.FlagSeen}
	}

	if err := s.ensureMailbox(); err != nil {
		_ = client.Close()
		return nil, err
	}

	if logger != nil {
		logger.Debug("imap connection established", "address", address, "user", opts.Username, "target", s.folder, "tls", opts.UseTLS)
	}

	s.stopClose = context.AfterFunc(ctx, func() {
		_ = client.Close()
	})

	return s, nil
}

func (s *session) Append(msg model.Message) error {
	options := &imapv2.AppendOptions{Flags: s.flags}
	if !msg.ReceivedAt.IsZero() {
		options.Time = msg.ReceivedAt
	}

	cmd := s.client.Append(s.folder, int64(len(msg.Raw)), options)

	remaining := msg.Raw
	for len(remaining) > 0 {
		n, err := cmd.Write(remaining)
		if err != nil {
			_ = cmd.Close()
			return fmt.Errorf("append write: %w", err)
		}
		if n == 0 {
			_ = cmd.Close()
			return fmt.Errorf("append write: wrote 0 bytes")
		}
		remaining = remaining[n:]
	}

	if err := cmd.Close(); err != nil {
		return fmt.Errorf("append close: %w", err)
	}

	if _, err := cmd.Wait(); err != nil {
		return fmt.Errorf("append wait: %w", err)
	}

	return nil
}

func (s *session) Close() error {
	s.stopClose()
	if s.ctx.Err() == nil {
		if err := s.client.Logout().Wait(); err != nil && s.logger != nil {
			s.logger.Warn("imap logout failed", "err", err)
		}
	}
	return s.client.Close()
}

func (s *session) ensureMailbox() error {
	cmd := s.client.Create(s.folder, nil)
	if err := cmd.Wait(); err != nil {
		var respErr *imapv2.Error
		if errors.As(err, &respErr) {
			if respErr.Code == imapv2.ResponseCodeAlreadyExists {
				if s.logger != nil {
					s.logger.Debug("imap mailbox already exists", "mailbox", s.folder)
				}
				return nil
			}
		}
		return fmt.Errorf("ensure mailbox %s: %w", s.folder, err)
	}

	if s.logger != nil {
		s.logger.Info("imap mailbox created", "mailbox", s.folder)
	}

	return nil
}
