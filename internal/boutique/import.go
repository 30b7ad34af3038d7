package boutique

import (
	"context"
	"fmt"

	"github.com/example/mavi-boutique/internal/infrastructure/store"
)

// Import saves a state export (for example the storefront's localStorage
// blob) under key. Legacy enum values are rewritten to current ones. An
// existing state is only replaced when overwrite is set.
func Import(ctx context.Context, backend store.StateStore, key string, data []byte, overwrite bool) (AppState, error) {
	if key == "" {
		key = store.DefaultStateKey
	}

	state, err := Decode(data)
	if err != nil {
		return AppState{}, err
	}

	if !overwrite {
		_, found, err := backend.Load(ctx, key)
		if err != nil {
			return AppState{}, fmt.Errorf("load state %q: %w", key, err)
		}
		if found {
			return AppState{}, ErrStateExists
		}
	}

	encoded, err := Encode(state)
	if err != nil {
		return AppState{}, err
	}
	if err := backend.Save(ctx, key, encoded); err != nil {
		return AppState{}, fmt.Errorf("save state: %w", err)
	}
	return state, nil
}
