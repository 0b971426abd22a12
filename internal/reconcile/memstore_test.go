package reconcile

import (
	"context"
	"sync"
)

// memoryStore is an in-memory catalog and investor store that enforces the
// same conditional write as the Postgres implementation.
type memoryStore struct {
	mu        sync.Mutex
	companies []Company
	investors []Investor
	grants    map[string]map[string]bool

	listCompaniesErr error
	listInvestorsErr error
	linkErr          map[string]error
	writes           int
}

func newMemoryStore(companies []Company, investors ...Investor) *memoryStore {
	return &memoryStore{
		companies: companies,
		investors: investors,
		grants:    map[string]map[string]bool{},
		linkErr:   map[string]error{},
	}
}

func (m *memoryStore) grant(userID string, companyIDs ...string) *memoryStore {
	if m.grants[userID] == nil {
		m.grants[userID] = map[string]bool{}
	}
	for _, id := range companyIDs {
		m.grants[userID][id] = true
	}
	return m
}

func (m *memoryStore) CanAccess(_ context.Context, userID, companyID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.grants[userID][companyID], nil
}

func (m *memoryStore) ListCompanies(context.Context) ([]Company, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listCompaniesErr != nil {
		return nil, m.listCompaniesErr
	}
	return append([]Company(nil), m.companies...), nil
}

func (m *memoryStore) ListInvestorsForMatching(_ context.Context, companyID string) ([]Investor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listInvestorsErr != nil {
		return nil, m.listInvestorsErr
	}
	items := make([]Investor, 0)
	for _, inv := range m.investors {
		if inv.CompanyID == companyID && inv.ClientName != "" {
			items = append(items, inv)
		}
	}
	return items, nil
}

func (m *memoryStore) LinkInvestor(_ context.Context, write LinkWrite) (Investor, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.linkErr[write.InvestorID]; err != nil {
		return Investor{}, false, err
	}
	for i := range m.investors {
		inv := &m.investors[i]
		if inv.ID != write.InvestorID || inv.CompanyID != write.SourceCompanyID {
			continue
		}
		if !write.Force && inv.ClientCompanyID != nil {
			return Investor{}, false, nil
		}
		target := write.TargetCompanyID
		matchType := write.MatchType
		at := write.At
		inv.ClientCompanyID = &target
		inv.ClientCompanyMatchType = &matchType
		inv.ClientCompanyMatchedAt = &at
		inv.UpdatedAt = at
		m.writes++
		return *inv, true, nil
	}
	return Investor{}, false, nil
}

func (m *memoryStore) investor(id string) Investor {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, inv := range m.investors {
		if inv.ID == id {
			return inv
		}
	}
	return Investor{}
}

func strPtr(value string) *string {
	return &value
}
