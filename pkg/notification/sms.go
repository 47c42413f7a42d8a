package notification

import (
	"context"
	"errors"
	"fmt"
)

type SMSConfig struct {
	SignName     string
	TemplateCode string
	Recipients   []string // 值班电话
}

// SMSClient 便于替换/注入的发送接口（适配真实 SDK）
type SMSClient interface {
	Send(ctx context.Context, phone, sign, template string, params map[string]string) error
}

type SMS struct {
	cfg SMSConfig
	cli SMSClient
}

func NewSMS(cfg SMSConfig, cli SMSClient) *SMS {
	return &SMS{cfg: cfg, cli: cli}
}

// Notify texts every recipient; one failed number does not stop the rest.
func (s *SMS) Notify(ctx context.Context, a Alert) error {
	if s.cli == nil {
		return ErrNotConfigured
	}
	params := map[string]string{
		"kind":     a.Kind,
		"location": a.Location,
		"bureau":   a.Bureau,
	}
	var errs []error
	for _, phone := range s.cfg.Recipients {
		if err := s.cli.Send(ctx, phone, s.cfg.SignName, s.cfg.TemplateCode, params); err != nil {
			errs = append(errs, fmt.Errorf("sms %s: %w", phone, err))
		}
	}
	return errors.Join(errs...)
}
