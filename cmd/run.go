package cmd

import (
	"context"
	"fmt"

	"github.com/abhisek/blueprint/internal/blueprint"
	"github.com/abhisek/blueprint/internal/itempool"
	"github.com/abhisek/blueprint/internal/store"
)

// openStore resolves the database path and opens the store.
func openStore() (*store.Store, error) {
	dbPath, err := resolveDBPath()
	if err != nil {
		return nil, fmt.Errorf("resolve DB path: %w", err)
	}
	st, err := store.Open(dbPath, store.WithLogger(log.With("component", "store")))
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	return st, nil
}

// bankPool hydrates the latest imported item bank of a blueprint.
func bankPool(ctx context.Context, st *store.Store, doc *blueprint.Document) (*store.Version, []itempool.BankRecord, []itempool.Item, error) {
	ver, err := st.Versions().Latest(ctx, doc.TemplateID)
	if err != nil {
		return nil, nil, nil, err
	}
	if ver == nil {
		return nil, nil, nil, fmt.Errorf("no item bank imported for %s (run: blueprint bank import %s)", doc.TemplateID, doc.TemplateID)
	}

	records, err := st.Bank().Records(ctx, ver.ID)
	if err != nil {
		return nil, nil, nil, err
	}
	stats, err := st.Bank().Stats(ctx, ver.ID)
	if err != nil {
		return nil, nil, nil, err
	}
	items, err := itempool.FromBank(records, itempool.StatsByItem(stats))
	if err != nil {
		return nil, nil, nil, fmt.Errorf("hydrate item bank %s: %w", ver.ID, err)
	}
	return ver, records, items, nil
}
