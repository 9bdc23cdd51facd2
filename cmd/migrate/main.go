// Command migrate loads a directory of per-kind JSON files into the
// content store (spec §4.9). It is a one-shot job, not a server: it
// opens the store, ingests what it finds, prints a summary, and exits.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ai-gamemaster/knowledge-core/internal/config"
	"github.com/ai-gamemaster/knowledge-core/internal/logging"
	"github.com/ai-gamemaster/knowledge-core/internal/store"
)

var (
	configPath   string
	dataDir      string
	packID       string
	packVersion  string
	packAuthor   string
	dropExisting bool
)

// migrateCmd is the job's entry point. It has no subcommands: the whole
// binary does one thing.
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Load <kind>.json files from a data directory into the content store",
	Long: `migrate reads a directory of JSON files named "<kind>.json" (e.g.
spells.json, monsters.json), one array of kind-specific records per
file, and upserts them into the content store under a single content
pack.

Each kind's rows load inside one SQL transaction: a validation failure
on any record rolls back that kind only and reports the offending
index, leaving already-migrated kinds and the content pack intact.`,
	RunE: runMigrate,
}

func init() {
	migrateCmd.Flags().StringVar(&configPath, "config", "", "path to config YAML (default: built-in defaults)")
	migrateCmd.Flags().StringVar(&dataDir, "data-dir", "", "directory containing <kind>.json files (required)")
	migrateCmd.Flags().StringVar(&packID, "pack-id", "dnd_5e_srd", "content pack id to upsert rows under")
	migrateCmd.Flags().StringVar(&packVersion, "pack-version", "5.1", "content pack version")
	migrateCmd.Flags().StringVar(&packAuthor, "pack-author", "", "content pack author")
	migrateCmd.MarkFlagRequired("data-dir")
	migrateCmd.Flags().BoolVar(&dropExisting, "drop", false, "empty every kind table before loading (asks for confirmation)")
}

func main() {
	if err := migrateCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// kindRecord is the generic shape every JSON record is decoded into
// before its index/name fields are pulled out and the rest is
// re-encoded as the opaque data blob store.Row expects.
type kindRecord map[string]interface{}

func runMigrate(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	log := logging.Get(logging.CategoryMigrate)

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	s, err := store.Open(cfg.Store)
	if err != nil {
		return fmt.Errorf("open content store: %w", err)
	}
	defer s.Close()

	if dropExisting {
		fmt.Print("WARNING: --drop empties every kind table before loading. Are you sure? (y/N): ")
		var response string
		fmt.Scanln(&response)
		if response != "y" && response != "Y" {
			fmt.Println("aborted")
			return nil
		}
		if err := dropKindTables(ctx, s); err != nil {
			return fmt.Errorf("drop kind tables: %w", err)
		}
		log.Info("dropped all kind tables before reload")
	}

	if err := s.UpsertContentPack(ctx, packID, packVersion, packAuthor, true); err != nil {
		return fmt.Errorf("upsert content pack: %w", err)
	}
	log.Info("content pack %s@%s upserted", packID, packVersion)

	total := 0
	failedKinds := 0
	for _, k := range store.AllKinds {
		file := filepath.Join(dataDir, string(k)+".json")
		records, err := loadKindFile(file)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			fmt.Printf("✗ %-24s unreadable: %v\n", k, err)
			failedKinds++
			continue
		}

		count, err := migrateKind(ctx, s, k, records, log)
		if err != nil {
			fmt.Printf("✗ %-24s %v\n", k, err)
			failedKinds++
			continue
		}
		fmt.Printf("✓ %-24s %d rows\n", k, count)
		total += count
	}

	fmt.Printf("\nmigrated %d rows total", total)
	if failedKinds > 0 {
		fmt.Printf(" (%d kind(s) failed, see above)\n", failedKinds)
		return fmt.Errorf("%d kind(s) failed to migrate", failedKinds)
	}
	fmt.Println()
	return nil
}

// dropKindTables empties every kind table so a reload starts clean.
// It deletes rows rather than dropping and recreating the tables
// themselves, since only store.Bootstrap owns that DDL.
func dropKindTables(ctx context.Context, s *store.ContentStore) error {
	for _, k := range store.AllKinds {
		table, err := store.TableName(k)
		if err != nil {
			return err
		}
		if _, err := s.DB().ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s`, table)); err != nil {
			return fmt.Errorf("empty %s: %w", table, err)
		}
	}
	return nil
}

func loadKindFile(path string) ([]kindRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var records []kindRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return records, nil
}

// migrateKind loads every record for one kind inside a single
// transaction. A record that fails validation aborts (rolls back) the
// whole kind and reports the offending index, per spec §4.9.
func migrateKind(ctx context.Context, s *store.ContentStore, k store.Kind, records []kindRecord, log *logging.Logger) (int, error) {
	tx, err := s.BeginKind(ctx)
	if err != nil {
		return 0, err
	}

	for i, rec := range records {
		row, err := toRow(k, packID, rec)
		if err != nil {
			tx.Rollback()
			return 0, fmt.Errorf("record %d: %w", i, err)
		}
		if err := s.InsertRowTx(ctx, tx, k, row, nil, 0); err != nil {
			tx.Rollback()
			return 0, fmt.Errorf("record %d (index=%s): %w", i, row.Index, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	log.Info("migrated %d %s records", len(records), k)
	return len(records), nil
}

// toRow pulls the shared index/name/url fields a store.Row needs out
// of a generic record and re-encodes the rest as the opaque data blob.
func toRow(k store.Kind, packID string, rec kindRecord) (store.Row, error) {
	index, ok := rec["index"].(string)
	if !ok || index == "" {
		return store.Row{}, fmt.Errorf("missing or non-string \"index\" field")
	}
	name, ok := rec["name"].(string)
	if !ok || name == "" {
		return store.Row{}, fmt.Errorf("missing or non-string \"name\" field")
	}
	url, _ := rec["url"].(string)

	blob, err := json.Marshal(rec)
	if err != nil {
		return store.Row{}, fmt.Errorf("re-encode record: %w", err)
	}

	return store.Row{
		Index:         index,
		Name:          name,
		URL:           url,
		ContentPackID: packID,
		Data:          string(blob),
	}, nil
}
