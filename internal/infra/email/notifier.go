package email

import (
	"context"
	"fmt"
	"net/smtp"

	"go.uber.org/zap"
)

type SMTPNotifier struct {
	host   string
	port   int
	from   string
	logger *zap.Logger
	send   func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func NewSMTPNotifier(host string, port int, from string, logger *zap.Logger) *SMTPNotifier {
	return &SMTPNotifier{host: host, port: port, from: from, logger: logger, send: smtp.SendMail}
}

func (n *SMTPNotifier) NotifyFailure(_ context.Context, to, jobID string, guideID int, videoRef, errorMsg string) error {
	addr := fmt.Sprintf("%s:%d", n.host, n.port)

	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n\r\n%s",
		n.from, to, failureSubject(guideID), failureBody(jobID, guideID, videoRef, errorMsg),
	)

	if err := n.send(addr, nil, n.from, []string{to}, []byte(msg)); err != nil {
		n.logger.Error("failed to send failure notification email",
			zap.String("to", to),
			zap.String("job_id", jobID),
			zap.Error(err),
		)
		return fmt.Errorf("send email: %w", err)
	}

	n.logger.Info("failure notification email sent",
		zap.String("to", to),
		zap.String("job_id", jobID),
	)
	return nil
}

func failureSubject(guideID int) string {
	return fmt.Sprintf("Stepwise - Guide %d could not be generated", guideID)
}

func failureBody(jobID string, guideID int, videoRef, errorMsg string) string {
	return fmt.Sprintf(
		"Hello,\r\n\r\n"+
			"We could not build the step-by-step guide for your video.\r\n\r\n"+
			"Guide ID: %d\r\n"+
			"Job ID: %s\r\n"+
			"Video: %s\r\n"+
			"Error: %s\r\n\r\n"+
			"Please check that the video is reachable and in a supported format, then try again.\r\n\r\n"+
			"-- Stepwise Processing Service",
		guideID, jobID, videoRef, errorMsg,
	)
}
