package runtime

import (
	"context"
	"fmt"
	"strings"

	"github.com/voxflow/voxflow/pkg/domain"
)

// splitEntry breaks a "/family/key" path on its last separator: the final
// segment is the key, everything before it the family. Leading and trailing
// slashes are trimmed, so "/Exten/Sequence/196" yields ("Exten/Sequence",
// "196").
func splitEntry(entry string) (family, key string, err error) {
	trimmed := strings.Trim(strings.TrimSpace(entry), "/")
	i := strings.LastIndex(trimmed, "/")
	if i < 0 {
		return "", "", fmt.Errorf("database entry %q: missing family/key separator", entry)
	}
	return strings.Trim(trimmed[:i], "/"), strings.Trim(trimmed[i+1:], "/"), nil
}

func execDatabaseGet(ctx context.Context, s *session) (string, error) {
	spec := s.node.Spec.(*domain.DatabaseGetSpec)

	family := s.renderString(spec.Family)
	key := s.renderString(spec.Key)
	value, err := s.call.DBGet(ctx, family, key)
	if err != nil {
		return "", err
	}
	if spec.Variable != "" {
		s.channel.SetVariable(spec.Variable, coerce(value))
	}
	return s.defaultEdge(), nil
}

// execDatabasePut writes each "/family/key": value entry to the platform
// key-value store.
func execDatabasePut(ctx context.Context, s *session) (string, error) {
	spec := s.node.Spec.(*domain.DatabasePutSpec)

	scope := s.scope()
	for entry, value := range spec.Entries {
		family, key, err := splitEntry(s.renderWith(entry, scope))
		if err != nil {
			s.log.Warn("database entry skipped", "error", err)
			continue
		}
		if err := s.call.DBPut(ctx, family, key, s.renderAnyString(value, scope)); err != nil {
			return "", err
		}
	}
	return s.defaultEdge(), nil
}

func execDatabaseDel(ctx context.Context, s *session) (string, error) {
	spec := s.node.Spec.(*domain.DatabaseDelSpec)

	scope := s.scope()
	for _, entry := range spec.Entries {
		family, key, err := splitEntry(s.renderWith(entry, scope))
		if err != nil {
			s.log.Warn("database entry skipped", "error", err)
			continue
		}
		if err := s.call.DBDel(ctx, family, key); err != nil {
			return "", err
		}
	}
	return s.defaultEdge(), nil
}
