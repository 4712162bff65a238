package main

import (
	"context"
	"encoding/json"
	"fmt"
	"html/template"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/roadside-ops/mission-log/backend/internal/config"
	"github.com/roadside-ops/mission-log/backend/internal/domain"
	"github.com/roadside-ops/mission-log/backend/internal/notify"
	"github.com/roadside-ops/mission-log/backend/internal/utils"
	"github.com/wneessen/go-mail"
)

// queuedMail is domain.MailMessage with the payload left raw until its type is known.
type queuedMail struct {
	Type string          `json:"type"`
	To   string          `json:"to"`
	Data json.RawMessage `json:"data"`
}

func main() {
	/**********************************************
	 * Logger
	 **********************************************/
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	/**********************************************
	 * Configuration
	 **********************************************/
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Error("failed to load configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger = utils.NewLogger(cfg.Environment, cfg.LogLevel)
	slog.SetDefault(logger)

	if cfg.RabbitMQ.DSN == "" {
		logger.Error("RABBITMQ_DSN is required by the mail worker")
		os.Exit(1)
	}

	missionTmpl, err := template.ParseFiles(filepath.Join(cfg.Email.TemplateDir, "mission_submitted_email.html"))
	if err != nil {
		logger.Error("failed to parse mail template", slog.String("error", err.Error()))
		os.Exit(1)
	}

	/**********************************************
	 * Mail client
	 **********************************************/
	client, err := mail.NewClient(cfg.Email.SMTP.Host,
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithSSL(),
		mail.WithPort(cfg.Email.SMTP.Port),
		mail.WithUsername(cfg.Email.SMTP.Username),
		mail.WithPassword(cfg.Email.SMTP.Password),
		mail.WithTimeout(time.Duration(cfg.Email.SMTP.DialTimeout)*time.Second),
	)
	if err != nil {
		logger.Error("failed to create mail client", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer client.Close()

	// make sure the SMTP server accepts us before consuming anything
	clientDialCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Email.SMTP.DialTimeout)*time.Second)
	defer cancel()
	if err := client.DialWithContext(clientDialCtx); err != nil {
		logger.Error("failed to connect to mail server", slog.String("error", err.Error()))
		os.Exit(1)
	}

	/**********************************************
	 * RabbitMQ
	 **********************************************/
	conn, err := amqp.Dial(cfg.RabbitMQ.DSN)
	if err != nil {
		logger.Error("failed to connect to rabbitmq", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		logger.Error("failed to open channel", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer ch.Close()

	q, err := notify.DeclareQueue(ch, cfg.RabbitMQ.Queue)
	if err != nil {
		logger.Error("failed to declare queue", slog.String("error", err.Error()))
		os.Exit(1)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	msgs, err := ch.Consume(
		q.Name,
		"",    // consumer tag chosen by the broker
		false, // manual ack
		false, // exclusive
		false, // no-local, unsupported by RabbitMQ
		false, // no-wait
		nil,
	)
	if err != nil {
		logger.Error("failed to consume queue", slog.String("error", err.Error()))
		os.Exit(1)
	}

	ctx, stop := context.WithCancel(context.Background())
	wg := sync.WaitGroup{}

	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					logger.Error("delivery channel closed")
					sigChan <- syscall.SIGTERM
					return
				}

				m, err := buildMessage(cfg, missionTmpl, msg.Body)
				if err != nil {
					// malformed messages would fail forever, drop them
					logger.Error("failed to build mail", slog.String("error", err.Error()))
					_ = msg.Nack(false, false)
					continue
				}

				if err := client.DialAndSendWithContext(ctx, m); err != nil {
					logger.Error("failed to send mail", slog.String("error", err.Error()))
					_ = msg.Nack(false, true)
					continue
				}

				logger.Info("mail sent", slog.String("delivery", msg.MessageId))
				_ = msg.Ack(false)
			}
		}
	}()

	logger.Info("waiting for messages (CTRL+C to quit)")
	<-sigChan

	logger.Info("stopping mail worker")
	stop()
	wg.Wait()
	logger.Info("mail worker stopped")
}

func buildMessage(cfg *config.Config, missionTmpl *template.Template, body []byte) (*mail.Msg, error) {
	var qm queuedMail
	if err := json.Unmarshal(body, &qm); err != nil {
		return nil, fmt.Errorf("decode message: %w", err)
	}

	m := mail.NewMsg()
	if err := m.From(cfg.Email.SMTP.Username); err != nil {
		return nil, fmt.Errorf("set sender: %w", err)
	}
	if err := m.To(qm.To); err != nil {
		return nil, fmt.Errorf("set recipient: %w", err)
	}

	switch qm.Type {
	case domain.MailTypeMissionSubmitted:
		var data domain.MissionSubmittedMailData
		if err := json.Unmarshal(qm.Data, &data); err != nil {
			return nil, fmt.Errorf("decode %s data: %w", qm.Type, err)
		}
		if err := m.SetBodyHTMLTemplate(missionTmpl, data); err != nil {
			return nil, fmt.Errorf("render %s: %w", qm.Type, err)
		}
		m.Subject(fmt.Sprintf("New mission #%d: %s by %s", data.MissionID, data.ServiceType, data.DriverName))
	default:
		return nil, fmt.Errorf("unsupported mail type %q", qm.Type)
	}

	return m, nil
}
