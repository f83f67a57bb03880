// Package studydex is the embeddable client: it loads the stored state, runs
// one engine action and persists the result.
package studydex

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"studydex/internal/catalog"
	"studydex/internal/clock"
	"studydex/internal/collection"
	"studydex/internal/engine"
	"studydex/internal/model"
	"studydex/internal/report"
	"studydex/internal/snapshot"
	"studydex/internal/storage"
)

var ErrAmbiguousInstance = errors.New("instance reference matches more than one instance")

type Options struct {
	StoreKind string
	DBPath    string
	// Store replaces the backend built from StoreKind and DBPath.
	Store storage.Store

	Catalog  *catalog.Catalog
	Clock    clock.Clock
	Random   engine.RandomSource
	NewID    func() string
	Logger   *slog.Logger
	Defaults *model.Settings
}

type Client struct {
	store    storage.Store
	catalog  *catalog.Catalog
	engine   *engine.Engine
	logger   *slog.Logger
	defaults model.Settings

	mu          sync.Mutex
	initialized bool
}

func New(opts Options) (*Client, error) {
	store := opts.Store
	if store == nil {
		kind := opts.StoreKind
		if kind == "" {
			kind = storage.DefaultStoreKind()
		}
		path := opts.DBPath
		if path == "" {
			path = storage.DefaultPath(kind)
		}
		var err error
		store, err = storage.NewStore(kind, path)
		if err != nil {
			return nil, err
		}
	}

	cat := opts.Catalog
	if cat == nil {
		var err error
		cat, err = catalog.Default()
		if err != nil {
			return nil, err
		}
	}

	eng, err := engine.New(engine.Config{
		Catalog: cat,
		Clock:   opts.Clock,
		Random:  opts.Random,
		NewID:   opts.NewID,
	})
	if err != nil {
		return nil, err
	}

	defaults := model.DefaultSettings()
	if opts.Defaults != nil {
		if err := engine.ValidateSettings(*opts.Defaults); err != nil {
			return nil, err
		}
		defaults = *opts.Defaults
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		store:    store,
		catalog:  cat,
		engine:   eng,
		logger:   logger,
		defaults: defaults,
	}, nil
}

func (c *Client) Close() error {
	return storage.CloseIfSupported(c.store)
}

// Init prepares the store and writes a first state when none exists yet.
func (c *Client) Init(ctx context.Context) (model.State, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	s, err := c.load(ctx)
	if err != nil {
		return model.State{}, err
	}
	if err := c.save(ctx, "init", s); err != nil {
		return model.State{}, err
	}
	return s, nil
}

func (c *Client) Catalog() *catalog.Catalog {
	return c.catalog
}

func (c *Client) Now() time.Time {
	return c.engine.Now()
}

func (c *Client) State(ctx context.Context) (model.State, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.load(ctx)
}

func (c *Client) LogStudy(ctx context.Context, hours float64) (model.State, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	s, err := c.load(ctx)
	if err != nil {
		return model.State{}, err
	}
	next, err := c.engine.LogStudy(s, hours)
	if err != nil {
		return s, c.reject("log", err)
	}
	if err := c.save(ctx, "log", next, "hours", hours, "coins", next.Ledger.Coins.String()); err != nil {
		return s, err
	}
	return next, nil
}

func (c *Client) Catch(ctx context.Context) (engine.CatchResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	s, err := c.load(ctx)
	if err != nil {
		return engine.CatchResult{}, err
	}
	next, res, err := c.engine.Catch(s)
	if err != nil {
		return engine.CatchResult{}, c.reject("catch", err)
	}
	if err := c.save(ctx, "catch", next,
		"instance_id", res.Instance.InstanceID,
		"species_id", res.Species.ID,
		"new", res.NewDiscovery,
		"coins", next.Ledger.Coins.String(),
	); err != nil {
		return engine.CatchResult{}, err
	}
	return res, nil
}

// Evolve commits a linear evolution. For branching species it returns the
// pending options and saves nothing.
func (c *Client) Evolve(ctx context.Context, instanceRef string) (engine.EvolveResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	s, err := c.load(ctx)
	if err != nil {
		return engine.EvolveResult{}, err
	}
	id, err := resolveInstance(s, instanceRef)
	if err != nil {
		return engine.EvolveResult{}, c.reject("evolve", err)
	}
	res, err := c.engine.Evolve(s, id)
	if err != nil {
		return engine.EvolveResult{}, c.reject("evolve", err)
	}
	if res.Pending {
		c.logger.Debug("evolution pending", "instance_id", id, "species_id", res.From.ID, "options", len(res.Options))
		return res, nil
	}
	if err := c.save(ctx, "evolve", res.State,
		"instance_id", id,
		"species_id", res.To.ID,
		"coins", res.State.Ledger.Coins.String(),
	); err != nil {
		return engine.EvolveResult{}, err
	}
	return res, nil
}

func (c *Client) ConfirmEvolution(ctx context.Context, instanceRef string, targetID int) (engine.EvolveResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	s, err := c.load(ctx)
	if err != nil {
		return engine.EvolveResult{}, err
	}
	id, err := resolveInstance(s, instanceRef)
	if err != nil {
		return engine.EvolveResult{}, c.reject("evolve", err)
	}
	res, err := c.engine.ConfirmEvolution(s, id, targetID)
	if err != nil {
		return engine.EvolveResult{}, c.reject("evolve", err)
	}
	if err := c.save(ctx, "evolve", res.State,
		"instance_id", id,
		"species_id", res.To.ID,
		"coins", res.State.Ledger.Coins.String(),
	); err != nil {
		return engine.EvolveResult{}, err
	}
	return res, nil
}

func (c *Client) Trade(ctx context.Context, instanceRef string) (engine.TradeResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	s, err := c.load(ctx)
	if err != nil {
		return engine.TradeResult{}, err
	}
	id, err := resolveInstance(s, instanceRef)
	if err != nil {
		return engine.TradeResult{}, c.reject("trade", err)
	}
	next, res, err := c.engine.Trade(s, id)
	if err != nil {
		return engine.TradeResult{}, c.reject("trade", err)
	}
	if err := c.save(ctx, "trade", next,
		"instance_id", id,
		"species_id", res.Instance.SpeciesID,
		"bucket", res.Bucket.String(),
		"coins", next.Ledger.Coins.String(),
	); err != nil {
		return engine.TradeResult{}, err
	}
	return res, nil
}

// CheckTrade reports whether Trade would succeed now, and for which instance.
func (c *Client) CheckTrade(ctx context.Context, instanceRef string) (model.OwnedInstance, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	s, err := c.load(ctx)
	if err != nil {
		return model.OwnedInstance{}, err
	}
	id, err := resolveInstance(s, instanceRef)
	if err != nil {
		return model.OwnedInstance{}, err
	}
	if err := c.engine.CheckTrade(s, id); err != nil {
		return model.OwnedInstance{}, err
	}
	inst, _, _ := collection.Find(s.Collection, id)
	return inst, nil
}

func (c *Client) ToggleFavorite(ctx context.Context, instanceRef string) (model.OwnedInstance, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	s, err := c.load(ctx)
	if err != nil {
		return model.OwnedInstance{}, err
	}
	id, err := resolveInstance(s, instanceRef)
	if err != nil {
		return model.OwnedInstance{}, c.reject("favorite", err)
	}
	next, inst, err := c.engine.ToggleFavorite(s, id)
	if err != nil {
		return model.OwnedInstance{}, c.reject("favorite", err)
	}
	if err := c.save(ctx, "favorite", next, "instance_id", id, "favorite", inst.IsFavorite); err != nil {
		return model.OwnedInstance{}, err
	}
	return inst, nil
}

func (c *Client) SetNickname(ctx context.Context, instanceRef, nickname string) (model.OwnedInstance, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	s, err := c.load(ctx)
	if err != nil {
		return model.OwnedInstance{}, err
	}
	id, err := resolveInstance(s, instanceRef)
	if err != nil {
		return model.OwnedInstance{}, c.reject("nickname", err)
	}
	next, inst, err := c.engine.SetNickname(s, id, nickname)
	if err != nil {
		return model.OwnedInstance{}, c.reject("nickname", err)
	}
	if err := c.save(ctx, "nickname", next, "instance_id", id); err != nil {
		return model.OwnedInstance{}, err
	}
	return inst, nil
}

func (c *Client) UpdateSettings(ctx context.Context, patch engine.SettingsPatch) (model.Settings, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	s, err := c.load(ctx)
	if err != nil {
		return model.Settings{}, err
	}
	if patch.Empty() {
		return s.Settings, nil
	}
	next, err := c.engine.UpdateSettings(s, patch)
	if err != nil {
		return s.Settings, c.reject("settings", err)
	}
	if err := c.save(ctx, "settings", next); err != nil {
		return s.Settings, err
	}
	return next.Settings, nil
}

func (c *Client) Export(ctx context.Context) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	s, err := c.load(ctx)
	if err != nil {
		return nil, err
	}
	return snapshot.Export(s)
}

// Import replaces the whole stored state with a backup document. A document
// that fails validation leaves the stored state untouched.
func (c *Client) Import(ctx context.Context, data []byte) (model.State, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.ensureInit(ctx); err != nil {
		return model.State{}, err
	}
	s, err := snapshot.Import(data)
	if err != nil {
		return model.State{}, c.reject("import", err)
	}
	if err := c.save(ctx, "import", s, "owned", len(s.Collection.Owned), "discovered", len(s.Collection.Discovered)); err != nil {
		return model.State{}, err
	}
	return s, nil
}

func (c *Client) Status(ctx context.Context) (report.Summary, error) {
	s, err := c.State(ctx)
	if err != nil {
		return report.Summary{}, err
	}
	return report.Status(s, c.engine), nil
}

func (c *Client) Inventory(ctx context.Context) ([]report.InventoryRow, error) {
	s, err := c.State(ctx)
	if err != nil {
		return nil, err
	}
	return report.Inventory(s, c.engine), nil
}

func (c *Client) Dex(ctx context.Context) ([]report.DexRow, error) {
	s, err := c.State(ctx)
	if err != nil {
		return nil, err
	}
	return report.Dex(s, c.catalog), nil
}

func (c *Client) ensureInit(ctx context.Context) error {
	if c.initialized {
		return nil
	}
	if err := c.store.Init(ctx); err != nil {
		return fmt.Errorf("init store: %w", err)
	}
	c.initialized = true
	return nil
}

// load returns the stored state, or a first-launch state when nothing has been
// saved, with today's login applied.
func (c *Client) load(ctx context.Context) (model.State, error) {
	if err := c.ensureInit(ctx); err != nil {
		return model.State{}, err
	}
	s, ok, err := c.store.Load(ctx)
	if err != nil {
		return model.State{}, fmt.Errorf("load state: %w", err)
	}
	if !ok {
		s = model.NewState(c.engine.Now())
		s.Settings = c.defaults
	}
	return c.engine.TouchLogin(s), nil
}

func (c *Client) save(ctx context.Context, action string, s model.State, attrs ...any) error {
	if err := c.store.Save(ctx, s); err != nil {
		return fmt.Errorf("save state after %s: %w", action, err)
	}
	c.logger.Info("state saved", append([]any{"action", action}, attrs...)...)
	return nil
}

func (c *Client) reject(action string, err error) error {
	c.logger.Debug("action rejected", "action", action, "reason", engine.Message(err), "err", err)
	return err
}

// resolveInstance expands an unambiguous prefix to the full instance id.
// Unknown references pass through unchanged so the engine reports them in its
// own order (the trade limit before a missing instance).
func resolveInstance(s model.State, ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return ref, nil
	}
	if _, _, ok := collection.Find(s.Collection, ref); ok {
		return ref, nil
	}
	var match string
	for _, inst := range s.Collection.Owned {
		if !strings.HasPrefix(inst.InstanceID, ref) {
			continue
		}
		if match != "" {
			return "", fmt.Errorf("%q: %w", ref, ErrAmbiguousInstance)
		}
		match = inst.InstanceID
	}
	if match == "" {
		return ref, nil
	}
	return match, nil
}
