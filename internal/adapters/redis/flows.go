package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	backend "github.com/redis/go-redis/v9"

	"github.com/voxflow/voxflow/internal/logging"
	"github.com/voxflow/voxflow/pkg/domain"
)

// FlowSource serves flow documents published to Redis by authoring tooling.
// Each flow is one JSON FlowDocument under prefix+name; the utilities bundle
// lives under its own key.
type FlowSource struct {
	client *backend.Client
	prefix string
	log    *slog.Logger
}

// NewFlowSource creates a flow source over an existing client.
func NewFlowSource(client *backend.Client, log *slog.Logger) *FlowSource {
	if log == nil {
		log = logging.NewNop()
	}
	return &FlowSource{
		client: client,
		prefix: "voxflow:flow:",
		log:    log,
	}
}

func (f *FlowSource) Flow(ctx context.Context, name string) (*domain.Flow, error) {
	val, err := f.client.Get(ctx, f.prefix+name).Result()
	if err != nil {
		if errors.Is(err, backend.Nil) {
			return nil, domain.ErrFlowNotFound
		}
		return nil, fmt.Errorf("get flow %q: %w", name, err)
	}

	var doc domain.FlowDocument
	if err := json.Unmarshal([]byte(val), &doc); err != nil {
		return nil, fmt.Errorf("decode flow %q: %w", name, err)
	}
	return domain.DecodeFlow(name, doc, f.log), nil
}

func (f *FlowSource) Utilities(ctx context.Context) (*domain.FlowUtilities, error) {
	val, err := f.client.Get(ctx, f.prefix+"utils").Result()
	if err != nil {
		if errors.Is(err, backend.Nil) {
			return &domain.FlowUtilities{}, nil
		}
		return nil, fmt.Errorf("get flow utilities: %w", err)
	}

	var doc domain.UtilitiesDocument
	if err := json.Unmarshal([]byte(val), &doc); err != nil {
		return nil, fmt.Errorf("decode flow utilities: %w", err)
	}

	utils, errs := domain.DecodeUtilities(doc)
	for _, derr := range errs {
		f.log.Warn("dropping flow utility", "err", derr)
	}
	return utils, nil
}
