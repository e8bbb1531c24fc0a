package assembler

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// Assemble runs a bounded fan-in merge: each round composes batches of at most
// maxSources objects into temporaries until a single object remains.
func (a *implAssembler) Assemble(ctx context.Context, sources []string, dest string) (int, error) {
	if len(sources) == 0 {
		return 0, fmt.Errorf("assemble %s: no sources", dest)
	}

	// temporaries are private to this call; concurrent finalizes share dest
	tmpPrefix := dest + ".compose." + uuid.NewString() + "."
	defer a.cleanup(ctx, tmpPrefix)

	queue := append([]string(nil), sources...)
	round := 0
	for len(queue) > 1 {
		next := make([]string, 0, (len(queue)+a.maxSources-1)/a.maxSources)
		for i := 0; i < len(queue); i += a.maxSources {
			end := min(i+a.maxSources, len(queue))
			batch := queue[i:end]
			if len(batch) == 1 {
				next = append(next, batch[0])
				continue
			}
			tmp := fmt.Sprintf("%s%d.%d", tmpPrefix, round, i/a.maxSources)
			if err := a.store.Compose(ctx, batch, tmp); err != nil {
				return round, fmt.Errorf("compose round %d batch %d: %w", round, i/a.maxSources, err)
			}
			next = append(next, tmp)
		}
		a.logger.Debug(ctx, "Compose round %d: %d -> %d objects", round, len(queue), len(next))
		queue = next
		round++
	}

	if queue[0] != dest {
		if err := a.store.Copy(ctx, queue[0], dest); err != nil {
			return round, fmt.Errorf("copy into %s: %w", dest, err)
		}
	}

	a.logger.Info(ctx, "Assembled %d objects into %s in %d rounds", len(sources), dest, round)
	return round, nil
}

// cleanup removes intermediate objects; failures are only logged
func (a *implAssembler) cleanup(ctx context.Context, prefix string) {
	if err := a.store.DeletePrefix(ctx, prefix); err != nil {
		a.logger.Warn(ctx, "Failed to cleanup compose temporaries %s*: %v", prefix, err)
	}
}
