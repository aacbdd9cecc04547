package queue

import "log/slog"

type settings struct {
	logger  *slog.Logger
	metrics *Metrics
	policy  RetryPolicy
}

func defaultSettings() settings {
	return settings{
		logger: slog.Default(),
		policy: DefaultRetryPolicy(),
	}
}

// Option configures a queue driver.
type Option func(*settings)

func WithLogger(logger *slog.Logger) Option {
	return func(s *settings) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithMetrics(m *Metrics) Option {
	return func(s *settings) {
		s.metrics = m
	}
}

func WithRetryPolicy(p RetryPolicy) Option {
	return func(s *settings) {
		s.policy = p
	}
}
