// Package metadata gathers everything the row pipeline needs to know about a table
// before touching a row: live structure, keys, settings and widgets.
package metadata

import (
	"context"
	"fmt"
	"sort"

	"dbadminapi/models"
	"dbadminapi/pkg/logger"
	"dbadminapi/services/dao"
	"dbadminapi/services/widget"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
	"gorm.io/gorm"
)

// enrichmentConcurrency bounds concurrent referenced-table lookups per request.
const enrichmentConcurrency = 5

// SettingsFinder loads table settings from the metadata store. A missing record is nil, nil.
type SettingsFinder interface {
	FindByConnectionAndTable(tx *gorm.DB, connectionID, tableName string) (*models.TableSettings, error)
}

// WidgetFinder loads the stored widgets of a table.
type WidgetFinder interface {
	FindByConnectionAndTable(tx *gorm.DB, connectionID, tableName string) ([]models.TableWidget, error)
}

// Request identifies the table to describe. Tx may be nil.
type Request struct {
	DAO          dao.DataAccessObject
	ConnectionID string
	TableName    string
	UserEmail    string
	Tx           *gorm.DB
}

// TableMetadata is the joined result of all sub-fetches. ForeignKeys holds the database
// foreign keys followed by the widget-defined ones.
type TableMetadata struct {
	Structure      []dao.ColumnStructure
	PrimaryColumns []dao.PrimaryColumn
	ForeignKeys    []dao.ForeignKey
	Settings       *models.TableSettings
	Widgets        widget.Set
}

// Column returns the structure entry for name.
func (m *TableMetadata) Column(name string) (dao.ColumnStructure, bool) {
	for _, c := range m.Structure {
		if c.ColumnName == name {
			return c, true
		}
	}
	return dao.ColumnStructure{}, false
}

// PrimaryColumnNames returns the primary key column names in key order.
func (m *TableMetadata) PrimaryColumnNames() []string {
	out := make([]string, len(m.PrimaryColumns))
	for i, pc := range m.PrimaryColumns {
		out[i] = pc.ColumnName
	}
	return out
}

// BinaryColumns returns the set of binary columns in the structure.
func (m *TableMetadata) BinaryColumns() map[string]bool {
	out := make(map[string]bool)
	for _, c := range m.Structure {
		if c.IsBinary() {
			out[c.ColumnName] = true
		}
	}
	return out
}

// Enrichment is the autocomplete column list of a referenced table. Degraded is set when
// the lookup failed; Columns is then empty.
type Enrichment struct {
	Columns  []string `json:"autocomplete_columns"`
	Degraded bool     `json:"degraded,omitempty"`
}

// ForeignKeyWithAutocomplete is a foreign key as returned to clients.
type ForeignKeyWithAutocomplete struct {
	dao.ForeignKey
	Autocomplete Enrichment `json:"autocomplete"`
}

// Aggregator runs the metadata fetches of one request.
type Aggregator struct {
	settings SettingsFinder
	widgets  WidgetFinder
}

// NewAggregator creates an aggregator over the given stores.
func NewAggregator(settings SettingsFinder, widgets WidgetFinder) *Aggregator {
	return &Aggregator{settings: settings, widgets: widgets}
}

// Gather fetches structure, primary columns, foreign keys, settings and widgets
// concurrently. Any failed fetch fails the whole call.
func (a *Aggregator) Gather(ctx context.Context, req Request, log *logger.Entry) (*TableMetadata, error) {
	var (
		structure []dao.ColumnStructure
		primary   []dao.PrimaryColumn
		fks       []dao.ForeignKey
		settings  *models.TableSettings
		stored    []models.TableWidget
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		structure, err = req.DAO.GetTableStructure(gctx, req.TableName, req.UserEmail)
		if err != nil {
			return fmt.Errorf("table structure: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		primary, err = req.DAO.GetTablePrimaryColumns(gctx, req.TableName, req.UserEmail)
		if err != nil {
			return fmt.Errorf("primary columns: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		fks, err = req.DAO.GetTableForeignKeys(gctx, req.TableName, req.UserEmail)
		if err != nil {
			return fmt.Errorf("foreign keys: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		settings, err = a.settings.FindByConnectionAndTable(withContext(req.Tx, gctx), req.ConnectionID, req.TableName)
		if err != nil {
			return fmt.Errorf("table settings: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		stored, err = a.widgets.FindByConnectionAndTable(withContext(req.Tx, gctx), req.ConnectionID, req.TableName)
		if err != nil {
			return fmt.Errorf("table widgets: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	widgets := widget.ParseAll(stored, log)
	for _, v := range widgets.ForeignKeys() {
		fks = append(fks, dao.ForeignKey{
			ColumnName:           v.ColumnName,
			ReferencedColumnName: v.ReferencedColumnName,
			ReferencedTableName:  v.ReferencedTableName,
			ConstraintName:       v.ConstraintName,
		})
	}

	return &TableMetadata{
		Structure:      structure,
		PrimaryColumns: primary,
		ForeignKeys:    fks,
		Settings:       settings,
		Widgets:        widgets,
	}, nil
}

// EnrichForeignKeys attaches the autocomplete columns of each referenced table. The
// referenced table's autocomplete_columns setting wins; otherwise all of its columns
// not excluded by its settings are used. Lookup failures degrade the entry and are
// logged, never returned.
func (a *Aggregator) EnrichForeignKeys(ctx context.Context, req Request, fks []dao.ForeignKey, log *logger.Entry) []ForeignKeyWithAutocomplete {
	out := make([]ForeignKeyWithAutocomplete, len(fks))
	sem := semaphore.NewWeighted(enrichmentConcurrency)
	var g errgroup.Group

	for i, fk := range fks {
		out[i].ForeignKey = fk
		if err := sem.Acquire(ctx, 1); err != nil {
			out[i].Autocomplete = Enrichment{Columns: []string{}, Degraded: true}
			continue
		}
		i, fk := i, fk
		g.Go(func() error {
			defer sem.Release(1)
			cols, err := a.autocompleteColumns(ctx, req, fk.ReferencedTableName)
			if err != nil {
				if log != nil {
					log.WithError(err).Warnf("autocomplete columns of %q unavailable", fk.ReferencedTableName)
				}
				out[i].Autocomplete = Enrichment{Columns: []string{}, Degraded: true}
				return nil
			}
			out[i].Autocomplete = Enrichment{Columns: cols}
			return nil
		})
	}
	_ = g.Wait()
	return out
}

func (a *Aggregator) autocompleteColumns(ctx context.Context, req Request, table string) (cols []string, err error) {
	defer func() {
		if r := recover(); r != nil {
			cols, err = nil, fmt.Errorf("autocomplete lookup panicked: %v", r)
		}
	}()

	settings, err := a.settings.FindByConnectionAndTable(withContext(req.Tx, ctx), req.ConnectionID, table)
	if err != nil {
		return nil, err
	}
	if settings != nil && len(settings.AutocompleteColumns) > 0 {
		return append([]string(nil), settings.AutocompleteColumns...), nil
	}

	structure, err := req.DAO.GetTableStructure(ctx, table, req.UserEmail)
	if err != nil {
		return nil, err
	}
	excluded := map[string]bool{}
	if settings != nil {
		for _, f := range settings.ExcludedFields {
			excluded[f] = true
		}
	}
	cols = make([]string, 0, len(structure))
	for _, c := range structure {
		if !excluded[c.ColumnName] {
			cols = append(cols, c.ColumnName)
		}
	}
	sort.Strings(cols)
	return cols, nil
}

func withContext(tx *gorm.DB, ctx context.Context) *gorm.DB {
	if tx == nil {
		return nil
	}
	return tx.WithContext(ctx)
}
