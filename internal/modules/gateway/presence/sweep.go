package presence

import (
	"context"

	"go.uber.org/zap"
)

// Sweep removes principals that no longer exist in the directory, such as
// accounts deleted while their connection stayed open. Lookup failures keep
// the entry. It returns the removed principals.
func (r *Registry) Sweep(ctx context.Context) []string {
	if r.dir == nil {
		return nil
	}

	r.mu.Lock()
	ids := make([]string, 0, len(r.conns)+len(r.activities))
	seen := make(map[string]struct{}, len(r.conns))
	for id := range r.conns {
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	for id := range r.activities {
		if _, ok := seen[id]; !ok {
			ids = append(ids, id)
		}
	}
	r.mu.Unlock()

	var removed []string
	for _, id := range ids {
		if ctx.Err() != nil {
			break
		}
		exists, err := r.dir.Exists(ctx, id)
		if err != nil {
			r.logger.Warn("presence sweep lookup failed", zap.String("principal", id), zap.Error(err))
			continue
		}
		if exists {
			continue
		}
		if r.Remove(id) {
			removed = append(removed, id)
		}
	}
	if len(removed) > 0 {
		r.logger.Info("presence sweep removed orphans", zap.Strings("principals", removed))
	}
	return removed
}
