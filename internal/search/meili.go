package search

import (
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	meili "github.com/meilisearch/meilisearch-go"
	"go.uber.org/zap"

	"fundops/api/internal/reconcile"
)

const idxCompanies = "fundops_companies"

// Meili implements Index via Meilisearch.
type Meili struct {
	client  meili.ServiceManager
	logger  *zap.Logger
	healthy atomic.Bool
	done    chan struct{}
}

// NewMeili creates a Meilisearch client and configures the company index.
// An unreachable server is not an error; the health loop keeps probing.
func NewMeili(url, apiKey string, logger *zap.Logger) *Meili {
	if logger == nil {
		logger = zap.NewNop()
	}
	m := &Meili{
		client: meili.New(url, meili.WithAPIKey(apiKey)),
		logger: logger.Named("search.meili"),
		done:   make(chan struct{}),
	}

	if _, err := m.client.Health(); err != nil {
		m.logger.Warn("meilisearch unavailable", zap.String("url", url), zap.Error(err))
		m.healthy.Store(false)
	} else {
		m.healthy.Store(true)
		m.configureIndex()
	}

	go m.healthLoop()
	return m
}

func (m *Meili) configureIndex() {
	if _, err := m.client.CreateIndex(&meili.IndexConfig{
		Uid:        idxCompanies,
		PrimaryKey: "id",
	}); err != nil {
		m.logger.Debug("create index (may already exist)", zap.String("index", idxCompanies), zap.Error(err))
	}

	searchable := []string{"name", "normalized_name"}
	if _, err := m.client.Index(idxCompanies).UpdateSearchableAttributes(&searchable); err != nil {
		m.logger.Warn("update searchable attributes", zap.String("index", idxCompanies), zap.Error(err))
	}
}

func (m *Meili) healthLoop() {
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-m.done:
			return
		case <-ticker.C:
			_, err := m.client.Health()
			wasHealthy := m.healthy.Load()
			m.healthy.Store(err == nil)
			if err == nil && !wasHealthy {
				m.logger.Info("meilisearch recovered, reconfiguring index")
				m.configureIndex()
			}
		}
	}
}

// Close stops the background health monitor.
func (m *Meili) Close() {
	close(m.done)
}

// Healthy reports whether Meilisearch is reachable.
func (m *Meili) Healthy() bool {
	return m.healthy.Load()
}

func (m *Meili) SearchCompanies(text string, limit int) ([]reconcile.Company, int, error) {
	if !m.healthy.Load() {
		return nil, 0, fmt.Errorf("meilisearch unhealthy")
	}

	resp, err := m.client.Index(idxCompanies).Search(text, &meili.SearchRequest{
		Limit:                int64(limit),
		AttributesToRetrieve: []string{"id", "name"},
	})
	if err != nil {
		m.healthy.Store(false)
		return nil, 0, fmt.Errorf("meilisearch search: %w", err)
	}

	results := make([]reconcile.Company, 0, len(resp.Hits))
	for _, hit := range resp.Hits {
		if company, ok := hitToCompany(hit); ok {
			results = append(results, company)
		}
	}
	return results, int(resp.EstimatedTotalHits), nil
}

// IndexCompanies adds or replaces records in the company index.
func (m *Meili) IndexCompanies(records []CompanyRecord) error {
	if len(records) == 0 {
		return nil
	}
	_, err := m.client.Index(idxCompanies).AddDocuments(records, nil)
	return err
}

func hitToCompany(hit meili.Hit) (reconcile.Company, bool) {
	company := reconcile.Company{
		ID:   decodeString(hit, "id"),
		Name: decodeString(hit, "name"),
	}
	return company, company.ID != ""
}

func decodeString(hit meili.Hit, key string) string {
	raw, ok := hit[key]
	if !ok {
		return ""
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return ""
}
