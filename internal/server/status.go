package server

import (
	"context"
	"fmt"

	"github.com/hyperjump/licita/internal/config"
	"github.com/hyperjump/licita/internal/corpus"
	"github.com/hyperjump/licita/internal/storage"
)

// StatusConfig is the configuration summary included in the status response.
type StatusConfig struct {
	Strategy      string   `json:"strategy"`
	DefaultTopN   int      `json:"default_top_n"`
	MaxTopN       int      `json:"max_top_n"`
	OnDemandBuild bool     `json:"on_demand_build"`
	Watch         []string `json:"watch,omitempty"`
	DatabasePath  string   `json:"database_path,omitempty"`
}

// StatusResponse is the shape of GET /api/v1/status.
type StatusResponse struct {
	Tenders         int64               `json:"tenders"`
	Suppliers       int64               `json:"suppliers"`
	ActiveSuppliers int64               `json:"active_suppliers"`
	Proposals       int64               `json:"proposals"`
	Recommender     corpus.Status       `json:"recommender"`
	DiskUsageBytes  *int64              `json:"disk_usage_bytes,omitempty"`
	DiskUsage       []storage.PathUsage `json:"disk_usage,omitempty"`
	Config          *StatusConfig       `json:"config,omitempty"`
}

// CollectStatus gathers catalog counts, recommender state and disk usage.
func CollectStatus(ctx context.Context, store storage.Storage, builder *corpus.Builder, cfg *config.Config) (*StatusResponse, error) {
	var st StatusResponse
	var err error
	if st.Tenders, err = store.CountTenders(ctx); err != nil {
		return nil, fmt.Errorf("count tenders: %w", err)
	}
	if st.Suppliers, err = store.CountSuppliers(ctx, false); err != nil {
		return nil, fmt.Errorf("count suppliers: %w", err)
	}
	if st.ActiveSuppliers, err = store.CountSuppliers(ctx, true); err != nil {
		return nil, fmt.Errorf("count active suppliers: %w", err)
	}
	if st.Proposals, err = store.CountProposals(ctx); err != nil {
		return nil, fmt.Errorf("count proposals: %w", err)
	}
	if builder != nil {
		st.Recommender = builder.Status()
	}
	if cfg == nil {
		return &st, nil
	}
	paths := cfg.Storage
	usage, total, err := storage.Usage(map[string]string{
		"database":     paths.DatabasePath,
		"bleve_index":  paths.BleveIndexPath,
		"vector_cache": paths.VectorCachePath,
	})
	if err == nil {
		st.DiskUsageBytes = &total
		st.DiskUsage = usage
	}
	rc := cfg.Recommender
	st.Config = &StatusConfig{
		Strategy:      rc.Strategy,
		DefaultTopN:   rc.DefaultTopN,
		MaxTopN:       rc.MaxTopN,
		OnDemandBuild: rc.OnDemandBuildOrDefault(),
		Watch:         cfg.Watch.Directories,
		DatabasePath:  paths.DatabasePath,
	}
	return &st, nil
}
