// Package file loads flow definitions from a directory of YAML files.
//
// A flow named "support" is read from <dir>/support.yaml (or .yml); the
// shared middleware and email-server bundle comes from <dir>/flow_utils.yaml.
package file

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/voxflow/voxflow/internal/logging"
	"github.com/voxflow/voxflow/pkg/domain"
)

// UtilitiesFile is the well-known name of the flow-utilities bundle.
const UtilitiesFile = "flow_utils"

// Source implements ports.FlowSource over a flows directory.
type Source struct {
	dir string
	log *slog.Logger
}

// New creates a source rooted at dir.
func New(dir string, log *slog.Logger) *Source {
	if log == nil {
		log = logging.NewNop()
	}
	return &Source{dir: dir, log: log}
}

// Flow reads and decodes <dir>/<name>.yaml.
func (s *Source) Flow(ctx context.Context, name string) (*domain.Flow, error) {
	data, err := s.read(name)
	if err != nil {
		return nil, err
	}

	var doc domain.FlowDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse flow %q: %w", name, err)
	}
	return domain.DecodeFlow(name, doc, s.log), nil
}

// Utilities reads the bundle file. A missing file yields an empty bundle.
func (s *Source) Utilities(ctx context.Context) (*domain.FlowUtilities, error) {
	data, err := s.read(UtilitiesFile)
	if errors.Is(err, domain.ErrFlowNotFound) {
		utils, _ := domain.DecodeUtilities(domain.UtilitiesDocument{})
		return utils, nil
	}
	if err != nil {
		return nil, err
	}

	var doc domain.UtilitiesDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse flow utilities: %w", err)
	}

	utils, errs := domain.DecodeUtilities(doc)
	for _, derr := range errs {
		s.log.Warn("dropping flow utility", "err", derr)
	}
	return utils, nil
}

func (s *Source) read(name string) ([]byte, error) {
	for _, ext := range []string{".yaml", ".yml"} {
		data, err := os.ReadFile(filepath.Join(s.dir, name+ext))
		if err == nil {
			return data, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("read flow %q: %w", name, err)
		}
	}
	return nil, fmt.Errorf("flow %q: %w", name, domain.ErrFlowNotFound)
}
