// Package report derives the read-only views of a state: inventory, dex and
// the dashboard summary, plus their CSV renderings.
package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/shopspring/decimal"

	"studydex/internal/catalog"
	"studydex/internal/clock"
	"studydex/internal/collection"
	"studydex/internal/engine"
	"studydex/internal/ledger"
	"studydex/internal/model"
)

const (
	hiddenName     = "???"
	unknownName    = "MissingNo"
	backupFileTmpl = "study-dex-backup-%s.json"
)

type InventoryRow struct {
	InstanceID string `csv:"instance_id" json:"instance_id"`
	SpeciesID  int    `csv:"species_id" json:"species_id"`
	Name       string `csv:"name" json:"name"`
	Nickname   string `csv:"nickname" json:"nickname,omitempty"`
	Types      string `csv:"types" json:"types"`
	Stage      int    `csv:"stage" json:"stage"`
	FamilyID   int    `csv:"family_id" json:"family_id"`
	Favorite   bool   `csv:"favorite" json:"favorite"`
	CanEvolve  bool   `csv:"can_evolve" json:"can_evolve"`
	CaughtAt   string `csv:"caught_at" json:"caught_at"`
}

type DexRow struct {
	SpeciesID  int    `csv:"species_id" json:"species_id"`
	Name       string `csv:"name" json:"name"`
	Types      string `csv:"types" json:"types"`
	Stage      int    `csv:"stage" json:"stage"`
	FamilyID   int    `csv:"family_id" json:"family_id"`
	Discovered bool   `csv:"discovered" json:"discovered"`
	Owned      int    `csv:"owned" json:"owned"`
}

type Summary struct {
	Date             string          `json:"date"`
	Coins            decimal.Decimal `json:"coins"`
	StudyHours       decimal.Decimal `json:"total_study_hours"`
	DailyTarget      float64         `json:"daily_target"`
	DailyProgress    float64         `json:"daily_progress"`
	Owned            int             `json:"owned"`
	Favorites        int             `json:"favorites"`
	Discovered       int             `json:"discovered"`
	CatalogSize      int             `json:"catalog_size"`
	CanCatch         bool            `json:"can_catch"`
	Bucket           clock.Bucket    `json:"-"`
	MorningTradeOpen bool            `json:"morning_trade_open"`
	EveningTradeOpen bool            `json:"afternoon_trade_open"`
}

// Inventory lists owned instances favorites first, then by species id and
// catch time.
func Inventory(s model.State, e *engine.Engine) []InventoryRow {
	cat := e.Catalog()
	sorted := collection.Sorted(s.Collection)
	rows := make([]InventoryRow, 0, len(sorted))
	for _, inst := range sorted {
		row := InventoryRow{
			InstanceID: inst.InstanceID,
			SpeciesID:  inst.SpeciesID,
			Name:       unknownName,
			Nickname:   inst.Nickname,
			Favorite:   inst.IsFavorite,
			CanEvolve:  e.CanEvolve(s, inst.InstanceID),
			CaughtAt:   inst.CaughtAt.UTC().Format(time.RFC3339),
		}
		if sp, ok := cat.Get(inst.SpeciesID); ok {
			row.Name = sp.Name
			row.Types = strings.Join(sp.Types, "/")
			row.Stage = sp.Stage
			row.FamilyID = sp.FamilyID
		}
		rows = append(rows, row)
	}
	return rows
}

// Dex lists every catalog species in family order. Names and types of
// undiscovered species are masked.
func Dex(s model.State, cat *catalog.Catalog) []DexRow {
	seen := collection.DiscoveredSet(s.Collection)
	owned := make(map[int]int, len(s.Collection.Owned))
	for _, inst := range s.Collection.Owned {
		owned[inst.SpeciesID]++
	}

	order := cat.DexOrder()
	rows := make([]DexRow, 0, len(order))
	for _, sp := range order {
		_, found := seen[sp.ID]
		row := DexRow{
			SpeciesID:  sp.ID,
			Name:       hiddenName,
			Types:      hiddenName,
			Stage:      sp.Stage,
			FamilyID:   sp.FamilyID,
			Discovered: found,
			Owned:      owned[sp.ID],
		}
		if found {
			row.Name = sp.Name
			row.Types = strings.Join(sp.Types, "/")
		}
		rows = append(rows, row)
	}
	return rows
}

func Status(s model.State, e *engine.Engine) Summary {
	now := e.Now()
	used := engine.UsedBuckets(s.Trades, now)
	favorites := 0
	for _, inst := range s.Collection.Owned {
		if inst.IsFavorite {
			favorites++
		}
	}
	total := len(e.Catalog().All())
	discovered, _ := collection.Progress(s.Collection, total)
	return Summary{
		Date:             clock.Date(now),
		Coins:            s.Ledger.Coins,
		StudyHours:       s.Ledger.TotalStudyHours,
		DailyTarget:      s.Settings.DailyTarget,
		DailyProgress:    ledger.DailyProgress(s.Ledger, s.Settings.DailyTarget),
		Owned:            len(s.Collection.Owned),
		Favorites:        favorites,
		Discovered:       discovered,
		CatalogSize:      total,
		CanCatch:         ledger.CanAfford(s.Ledger, engine.CatchCost),
		Bucket:           clock.BucketOf(now),
		MorningTradeOpen: !used[clock.Morning],
		EveningTradeOpen: !used[clock.Afternoon],
	}
}

// TradeOpen reports whether a trade is still available in the current bucket.
func (s Summary) TradeOpen() bool {
	if s.Bucket == clock.Morning {
		return s.MorningTradeOpen
	}
	return s.EveningTradeOpen
}

func WriteInventoryCSV(w io.Writer, rows []InventoryRow) error {
	if err := gocsv.Marshal(rows, w); err != nil {
		return fmt.Errorf("writing inventory: %w", err)
	}
	return nil
}

func WriteDexCSV(w io.Writer, rows []DexRow) error {
	if err := gocsv.Marshal(rows, w); err != nil {
		return fmt.Errorf("writing dex: %w", err)
	}
	return nil
}

// BackupFileName is the suggested export name for the given day.
func BackupFileName(now time.Time) string {
	return fmt.Sprintf(backupFileTmpl, clock.Date(now))
}
