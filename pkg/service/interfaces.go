package service

import (
	"context"

	"github.com/pd-buddy/pdbuddy-go/pkg/model"
	"github.com/pd-buddy/pdbuddy-go/pkg/pdo"
)

// Sink defines the device operations used by the command-line tools and
// the monitor. It is satisfied by *SinkSession.
type Sink interface {
	GetConfig(ctx context.Context) (model.Config, error)
	GetConfigAt(ctx context.Context, index int) (model.Config, error)
	GetTmpConfig(ctx context.Context) (model.Config, error)
	StageConfig(ctx context.Context, cfg model.Config) error
	Commit(ctx context.Context) error
	Erase(ctx context.Context) error
	Load(ctx context.Context) error
	SetOutput(ctx context.Context, enable bool) error
	Output(ctx context.Context) (bool, error)
	ListOffers(ctx context.Context) ([]pdo.Offer, error)
	CheckOffers(ctx context.Context) ([]pdo.Offer, []pdo.Violation, error)
	Identify(ctx context.Context) error
	Help(ctx context.Context) ([]string, error)
	License(ctx context.Context) ([]string, error)
	Exec(ctx context.Context, line string) ([]string, error)
	State() SessionState
	Close() error
}

// Compile-time check: *SinkSession implements Sink.
var _ Sink = (*SinkSession)(nil)
