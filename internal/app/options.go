package service

import (
	"github.com/okian/boxskill/internal/adapters/nlu"
	"github.com/okian/boxskill/internal/adapters/storage"
	"github.com/okian/boxskill/internal/domain/cards"
	"github.com/okian/boxskill/pkg/logger"
)

// StorageFactory builds the storage for a backend name.
type StorageFactory func(backend string) (storage.Storage, error)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithStorageFactory replaces how the storage backend is built.
func WithStorageFactory(f StorageFactory) Option {
	return func(s *Service) {
		if f != nil {
			s.storageFor = f
		}
	}
}

// WithAnalyzer replaces the NLU client.
func WithAnalyzer(a nlu.Analyzer) Option {
	return func(s *Service) {
		if a != nil {
			s.analyzer = a
		}
	}
}

// WithFormatter replaces the card formatter.
func WithFormatter(f *cards.Formatter) Option {
	return func(s *Service) {
		if f != nil {
			s.formatter = f
		}
	}
}

// WithIDGenerator sets how invocation correlation ids are made.
func WithIDGenerator(gen func() string) Option {
	return func(s *Service) {
		if gen != nil {
			s.newID = gen
		}
	}
}
